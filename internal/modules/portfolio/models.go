package portfolio

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/backtest/internal/domain"
)

// InvestmentType controls when a line item's capital enters the market.
type InvestmentType string

const (
	// LumpSum invests the whole amount at the first price on or after the start date.
	LumpSum InvestmentType = "lump_sum"
	// DCA splits the amount into equal installments invested every 30 days.
	DCA InvestmentType = "dca"
)

// DefaultDCAPeriods is used when a DCA line item does not say how many installments it wants.
const DefaultDCAPeriods = 12

// BuyAndHold selects the valuation path instead of strategy delegation.
const BuyAndHold = "buy_and_hold"

// Mode names which path produced a result.
type Mode string

const (
	ModeBuyAndHold Mode = "buy_and_hold"
	ModeStrategy   Mode = "strategy"
)

// EquityCurveSource describes how the equity curve in a result was produced.
type EquityCurveSource string

const (
	// CurveValuation is the daily valuation of every line item.
	CurveValuation EquityCurveSource = "valuation"
	// CurveCashOnly is the flat curve of a portfolio without usable price data.
	CurveCashOnly EquityCurveSource = "cash_only"
	// CurvePriceReconstruction scales each strategy item by its buy-and-hold price path.
	CurvePriceReconstruction EquityCurveSource = "price_reconstruction"
	// CurveLinearInterpolation is a straight line from invested capital to final value.
	// It is not a real daily valuation.
	CurveLinearInterpolation EquityCurveSource = "linear_interpolation"
)

var rebalanceFrequencies = map[string]bool{
	"none":      true,
	"daily":     true,
	"weekly":    true,
	"monthly":   true,
	"quarterly": true,
	"yearly":    true,
}

// LineItem is one requested position. Either Amount or Weight must be positive.
type LineItem struct {
	Symbol         string         `json:"symbol"`
	Amount         float64        `json:"amount,omitempty"`
	Weight         float64        `json:"weight,omitempty"`
	InvestmentType InvestmentType `json:"investment_type,omitempty"`
	DCAPeriods     int            `json:"dca_periods,omitempty"`
}

// Request describes one portfolio backtest.
type Request struct {
	Items              []LineItem
	StartDate          time.Time
	EndDate            time.Time
	RebalanceFrequency string
	// InitialCapital converts weights into monetary amounts. Zero keeps weights as-is.
	InitialCapital float64
	Strategy       string
	StrategyParams map[string]float64
	Commission     float64
}

// Position is a validated line item with its resolved amount and synthetic key.
type Position struct {
	Key            string
	Index          int
	Symbol         string
	Amount         float64
	InvestmentType InvestmentType
	DCAPeriods     int
}

// IsCash reports whether the position holds cash.
func (p Position) IsCash() bool {
	return domain.IsCash(p.Symbol)
}

// InstallmentAmount is the capital invested per DCA installment.
func (p Position) InstallmentAmount() float64 {
	if p.InvestmentType != DCA || p.DCAPeriods <= 1 {
		return p.Amount
	}
	return p.Amount / float64(p.DCAPeriods)
}

// PositionKey builds the synthetic identity of the line item at index.
func PositionKey(symbol string, index int) string {
	return fmt.Sprintf("%s_%d", strings.ToUpper(strings.TrimSpace(symbol)), index)
}

// DailyValuationRow is the portfolio value on one date of the unified axis.
type DailyValuationRow struct {
	Date        time.Time
	Value       float64
	DailyReturn float64
}

// StatisticsRecord summarises a daily value series.
type StatisticsRecord struct {
	Start                  string  `json:"start"`
	End                    string  `json:"end"`
	DurationDays           int     `json:"duration_days"`
	InitialValue           float64 `json:"initial_value"`
	FinalValue             float64 `json:"final_value"`
	PeakValue              float64 `json:"peak_value"`
	TotalReturnPct         float64 `json:"total_return_pct"`
	AnnualReturnPct        float64 `json:"annual_return_pct"`
	AnnualVolatilityPct    float64 `json:"annual_volatility_pct"`
	SharpeRatio            float64 `json:"sharpe_ratio"`
	MaxDrawdownPct         float64 `json:"max_drawdown_pct"`
	AvgDrawdownPct         float64 `json:"avg_drawdown_pct"`
	MaxConsecutiveGainDays int     `json:"max_consecutive_gain_days"`
	MaxConsecutiveLossDays int     `json:"max_consecutive_loss_days"`
	TotalDays              int     `json:"total_days"`
	PositiveDays           int     `json:"positive_days"`
	NegativeDays           int     `json:"negative_days"`
	ZeroDays               int     `json:"zero_days"`
	WinRatePct             float64 `json:"win_rate_pct"`
}

// CompositionEntry describes one position's share of the portfolio.
type CompositionEntry struct {
	Key            string         `json:"key"`
	Symbol         string         `json:"symbol"`
	Weight         float64        `json:"weight"`
	Amount         float64        `json:"amount"`
	InvestmentType InvestmentType `json:"investment_type"`
	DCAPeriods     int            `json:"dca_periods,omitempty"`
}

// ItemReturn is the per-position performance breakdown.
type ItemReturn struct {
	Symbol         string         `json:"symbol"`
	InvestmentType InvestmentType `json:"investment_type,omitempty"`
	DCAPeriods     int            `json:"dca_periods,omitempty"`
	Weight         float64        `json:"weight"`
	Amount         float64        `json:"amount"`
	ReturnPct      float64        `json:"return_pct"`
	// StartPrice is the entry price; for DCA it is the average cost per share.
	StartPrice   float64 `json:"start_price,omitempty"`
	EndPrice     float64 `json:"end_price,omitempty"`
	InitialValue float64 `json:"initial_value,omitempty"`
	FinalValue   float64 `json:"final_value,omitempty"`
	Trades       int     `json:"trades,omitempty"`
	WinRatePct   float64 `json:"win_rate_pct,omitempty"`
	HasPriceData bool    `json:"has_price_data"`
}

// BacktestRequest asks the single-asset engine to trade one line item.
type BacktestRequest struct {
	Symbol     string
	StartDate  time.Time
	EndDate    time.Time
	Capital    float64
	Strategy   string
	Params     map[string]float64
	Commission float64
}

// BacktestResult is the fixed-shape summary returned by the single-asset engine.
type BacktestResult struct {
	FinalValue     float64 `json:"final_value"`
	TotalTrades    int     `json:"total_trades"`
	WinRatePct     float64 `json:"win_rate_pct"`
	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// ErrorInfo is the stable error shape of a failed result.
type ErrorInfo struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Result is the output contract of a portfolio backtest.
type Result struct {
	Status                 string                    `json:"status"`
	RunID                  string                    `json:"run_id,omitempty"`
	Mode                   Mode                      `json:"mode,omitempty"`
	Strategy               string                    `json:"strategy,omitempty"`
	RebalanceFrequency     string                    `json:"rebalance_frequency,omitempty"`
	Statistics             *StatisticsRecord         `json:"statistics,omitempty"`
	Composition            []CompositionEntry        `json:"composition,omitempty"`
	PerItemReturns         map[string]ItemReturn     `json:"per_item_returns,omitempty"`
	StrategyDetails        map[string]BacktestResult `json:"strategy_details,omitempty"`
	TotalTrades            int                       `json:"total_trades,omitempty"`
	EquityCurve            map[string]float64        `json:"equity_curve,omitempty"`
	DailyReturns           map[string]float64        `json:"daily_returns,omitempty"`
	EquityCurveSource      EquityCurveSource         `json:"equity_curve_source,omitempty"`
	EquityCurveApproximate bool                      `json:"equity_curve_approximate"`
	Warnings               []string                  `json:"warnings,omitempty"`
	Error                  *ErrorInfo                `json:"error,omitempty"`
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)
