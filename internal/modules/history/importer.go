package history

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/backtest/internal/domain"
)

// Rejection records a CSV row that was not imported.
type Rejection struct {
	Line   int
	Reason string
}

// ImportResult is the outcome of parsing one CSV file.
type ImportResult struct {
	Prices   []domain.DailyPrice
	Rejected []Rejection
}

// ImportCSV parses date,open,high,low,close[,volume] rows. A header row is
// detected and skipped. Malformed or inconsistent bars are rejected, not fatal.
func ImportCSV(r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	result := &ImportResult{}
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		if line == 1 && isHeader(record) {
			continue
		}

		price, err := parseRecord(record)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Line: line, Reason: err.Error()})
			continue
		}
		if reason := ValidateBar(price); reason != "" {
			result.Rejected = append(result.Rejected, Rejection{Line: line, Reason: reason})
			continue
		}
		result.Prices = append(result.Prices, price)
	}
	return result, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "date")
}

func parseRecord(record []string) (domain.DailyPrice, error) {
	if len(record) < 5 {
		return domain.DailyPrice{}, fmt.Errorf("expected at least 5 columns, got %d", len(record))
	}

	date, err := domain.ParseDate(record[0])
	if err != nil {
		return domain.DailyPrice{}, err
	}

	values := make([]float64, 4)
	for i := range values {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil {
			return domain.DailyPrice{}, fmt.Errorf("invalid number %q: %w", record[i+1], err)
		}
	}

	price := domain.DailyPrice{
		Date:  date.Format(domain.DateLayout),
		Open:  values[0],
		High:  values[1],
		Low:   values[2],
		Close: values[3],
	}
	if len(record) > 5 && strings.TrimSpace(record[5]) != "" {
		volume, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
		if err != nil {
			return domain.DailyPrice{}, fmt.Errorf("invalid volume %q: %w", record[5], err)
		}
		price.Volume = &volume
	}
	return price, nil
}

// ValidateBar checks a bar for OHLC consistency. It returns the reason a bar
// is invalid, or "" when the bar is usable.
func ValidateBar(p domain.DailyPrice) string {
	switch {
	case p.Close <= 0:
		return "non_positive_close"
	case p.High < p.Low:
		return "high_below_low"
	case p.High < p.Open:
		return "high_below_open"
	case p.High < p.Close:
		return "high_below_close"
	case p.Low > p.Open:
		return "low_above_open"
	case p.Low > p.Close:
		return "low_above_close"
	}
	return ""
}
