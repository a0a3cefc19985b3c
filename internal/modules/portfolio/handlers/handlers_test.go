package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/backtest/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// MockBacktester is a mock portfolio service for testing
type MockBacktester struct {
	mock.Mock
}

func (m *MockBacktester) Backtest(ctx context.Context, req portfolio.Request) (*portfolio.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portfolio.Result), args.Error(1)
}

type staticStrategies []string

func (s staticStrategies) Names() []string { return s }

const validBody = `{
	"portfolio": [{"symbol": "AAPL", "weight": 0.6}, {"symbol": "CASH", "weight": 0.4}],
	"start_date": "2024-01-01",
	"end_date": "2024-12-31",
	"initial_capital": 10000
}`

func newRouter(svc Backtester) *chi.Mux {
	h := NewHandler(svc, staticStrategies{"rsi", "sma_cross"}, 0.002, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func successResult() *portfolio.Result {
	return &portfolio.Result{
		Status:            portfolio.StatusSuccess,
		RunID:             "run-1",
		Mode:              portfolio.ModeBuyAndHold,
		Statistics:        &portfolio.StatisticsRecord{TotalReturnPct: 6, TotalDays: 3},
		EquityCurve:       map[string]float64{"2024-01-01": 10000, "2024-12-31": 10600},
		EquityCurveSource: portfolio.CurveValuation,
	}
}

func TestHandleBacktest_JSON(t *testing.T) {
	svc := new(MockBacktester)
	svc.On("Backtest", mock.Anything, mock.MatchedBy(func(req portfolio.Request) bool {
		return len(req.Items) == 2 &&
			req.Items[0].Symbol == "AAPL" &&
			req.InitialCapital == 10000 &&
			req.Commission == 0.002 &&
			req.StartDate.Format("2006-01-02") == "2024-01-01"
	})).Return(successResult(), nil)

	req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "valuation", body["equity_curve_source"])
	stats := body["statistics"].(map[string]interface{})
	assert.Equal(t, 6.0, stats["total_return_pct"])
	svc.AssertExpectations(t)
}

func TestHandleBacktest_Msgpack(t *testing.T) {
	svc := new(MockBacktester)
	svc.On("Backtest", mock.Anything, mock.Anything).Return(successResult(), nil)

	req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(validBody))
	req.Header.Set("Accept", "application/msgpack")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var decoded map[string]interface{}
	require.NoError(t, msgpack.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "run-1", decoded["run_id"])
}

func TestHandleBacktest_ExplicitCommission(t *testing.T) {
	svc := new(MockBacktester)
	svc.On("Backtest", mock.Anything, mock.MatchedBy(func(req portfolio.Request) bool {
		return req.Commission == 0 && req.Strategy == "rsi"
	})).Return(successResult(), nil)

	body := `{"portfolio":[{"symbol":"AAPL","amount":100}],"start_date":"2024-01-01","end_date":"2024-02-01","strategy":"rsi","commission":0}`
	req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandleBacktest_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"portfolio": [`},
		{"bad start date", `{"portfolio":[{"symbol":"AAPL","amount":1}],"start_date":"01/02/2024","end_date":"2024-02-01"}`},
		{"missing end date", `{"portfolio":[{"symbol":"AAPL","amount":1}],"start_date":"2024-01-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBacktester)
			req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var result portfolio.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, portfolio.StatusError, result.Status)
			assert.Equal(t, portfolio.ErrInvalidRequest, result.Error.Code)
			svc.AssertNotCalled(t, "Backtest", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleBacktest_ErrorCodes(t *testing.T) {
	tests := []struct {
		code   portfolio.ErrorCode
		status int
	}{
		{portfolio.ErrInvalidRequest, http.StatusBadRequest},
		{portfolio.ErrNoValidData, http.StatusUnprocessableEntity},
		{portfolio.ErrAllItemsFailed, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			pe := &portfolio.Error{Code: tt.code, Message: "nope"}
			svc := new(MockBacktester)
			svc.On("Backtest", mock.Anything, mock.Anything).Return(portfolio.ErrorResult("run-2", pe), pe)

			req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(validBody))
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var result portfolio.Result
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, tt.code, result.Error.Code)
			assert.Equal(t, "nope", result.Error.Message)
			assert.Equal(t, "run-2", result.RunID)
		})
	}
}

func TestHandleBacktest_InternalErrorIsOpaque(t *testing.T) {
	svc := new(MockBacktester)
	svc.On("Backtest", mock.Anything, mock.Anything).Return(nil, errors.New("sqlite: database is locked"))

	req := httptest.NewRequest(http.MethodPost, "/portfolio/backtest", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "sqlite")
	var result portfolio.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, portfolio.ErrorCode("INTERNAL_ERROR"), result.Error.Code)
}

func TestHandleListStrategies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/strategies", nil)
	rec := httptest.NewRecorder()
	newRouter(new(MockBacktester)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Strategies []string `json:"strategies"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"buy_and_hold", "rsi", "sma_cross"}, body.Data.Strategies)
}

func TestRegisterRoutes(t *testing.T) {
	router := newRouter(new(MockBacktester))

	req := httptest.NewRequest(http.MethodGet, "/portfolio/backtest", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
