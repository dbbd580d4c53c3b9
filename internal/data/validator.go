package data

import (
	"fmt"
	"time"

	"tradebench/internal/domain"
	"tradebench/internal/util"
)

// Summary reports the coverage and quality of a bar series.
type Summary struct {
	Ticker           string    `json:"ticker"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalRecords     int       `json:"total_records"`
	MissingDates     int       `json:"missing_dates"`
	DataQualityScore float64   `json:"data_quality_score"`
}

// Validate checks a bar series for structural problems: inverted OHLC
// relationships, non-positive prices, and negative volume. It returns one
// message per kind of problem found; an empty slice means the series is
// clean.
func Validate(bars []domain.Bar) []string {
	var issues []string

	if len(bars) == 0 {
		return []string{"series is empty - no data available"}
	}

	var highBelowLow, closeAboveHigh, closeBelowLow int
	var nonPositive, negativeVolume int
	for _, b := range bars {
		if b.High < b.Low {
			highBelowLow++
		}
		if b.Close > b.High {
			closeAboveHigh++
		}
		if b.Close < b.Low {
			closeBelowLow++
		}
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			nonPositive++
		}
		if b.Volume < 0 {
			negativeVolume++
		}
	}

	if highBelowLow > 0 {
		issues = append(issues, fmt.Sprintf("found %d records where high < low", highBelowLow))
	}
	if closeAboveHigh > 0 {
		issues = append(issues, fmt.Sprintf("found %d records where close > high", closeAboveHigh))
	}
	if closeBelowLow > 0 {
		issues = append(issues, fmt.Sprintf("found %d records where close < low", closeBelowLow))
	}
	if nonPositive > 0 {
		issues = append(issues, fmt.Sprintf("found %d records with non-positive prices", nonPositive))
	}
	if negativeVolume > 0 {
		issues = append(issues, fmt.Sprintf("found %d records with negative volume", negativeVolume))
	}
	return issues
}

// MissingBusinessDays returns the weekdays between the first and last bar
// for which no bar exists. Market holidays are not modeled, so a clean
// series still reports a handful of missing dates per year.
func MissingBusinessDays(bars []domain.Bar) []time.Time {
	if len(bars) == 0 {
		return nil
	}

	have := make(map[time.Time]struct{}, len(bars))
	for _, b := range bars {
		d := b.Timestamp.UTC()
		have[time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)] = struct{}{}
	}

	var missing []time.Time
	for _, d := range util.BusinessDays(bars[0].Timestamp, bars[len(bars)-1].Timestamp) {
		if _, ok := have[d]; !ok {
			missing = append(missing, d)
		}
	}
	return missing
}

// QualityScore grades a series from 0 to 100. Invalid prices cost up to 20
// points, missing business days up to 30, and broken OHLC relationships up
// to 50.
func QualityScore(bars []domain.Bar, missingDates int) float64 {
	if len(bars) == 0 {
		return 0
	}

	score := 100.0
	n := float64(len(bars))

	var invalidPrices, invalidOHLC int
	for _, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 || b.Volume < 0 {
			invalidPrices++
		}
		if b.High < b.Low || b.Close > b.High || b.Close < b.Low {
			invalidOHLC++
		}
	}
	score -= float64(invalidPrices) / n * 20

	spanDays := bars[len(bars)-1].Timestamp.Sub(bars[0].Timestamp).Hours() / 24
	if spanDays < 1 {
		spanDays = 1
	}
	score -= float64(missingDates) / spanDays * 30

	score -= float64(invalidOHLC) / n * 50

	return min(100, max(0, score))
}

// NewSummary builds the coverage/quality summary for a ticker's bars.
func NewSummary(ticker string, bars []domain.Bar) Summary {
	if len(bars) == 0 {
		now := time.Now().UTC()
		return Summary{Ticker: ticker, StartDate: now, EndDate: now}
	}

	missing := MissingBusinessDays(bars)
	return Summary{
		Ticker:           ticker,
		StartDate:        bars[0].Timestamp,
		EndDate:          bars[len(bars)-1].Timestamp,
		TotalRecords:     len(bars),
		MissingDates:     len(missing),
		DataQualityScore: QualityScore(bars, len(missing)),
	}
}
