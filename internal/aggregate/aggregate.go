package aggregate

import (
	"sort"
	"time"

	"codeberg.org/mutker/netpulse/internal/store"
)

const defaultBufferRatio = 0.1

// Result is the filtered, clipped, and bucketed view of samples for one
// window. Samples are sorted by timestamp ascending; the descending
// tabular ordering is derived from the same slice via Descending.
type Result struct {
	Window  Window                   `json:"window"`
	Samples []store.HealthSample     `json:"samples"`
	Events  []store.RemediationEvent `json:"events"`
	Counts  StatusCounts             `json:"counts"`
}

// StatusCounts bucket the filtered samples by success percentage.
type StatusCounts struct {
	FullyUp     int `json:"fully_up"`
	PartiallyUp int `json:"partially_up"`
	Down        int `json:"down"`
}

// Aggregate filters samples to the window, sorts them ascending, and
// derives status-bucket counts. Deterministic given identical inputs and
// now. Events inside the window are carried along for overlay markers.
func Aggregate(samples []store.HealthSample, events []store.RemediationEvent, window Window, now time.Time) Result {
	filtered := filterByWindow(samples, window, now)

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Timestamp.Before(filtered[j].Timestamp)
	})

	return Result{
		Window:  window,
		Samples: filtered,
		Events:  filterEvents(events, window, now),
		Counts:  countStatuses(filtered),
	}
}

func filterByWindow(samples []store.HealthSample, window Window, now time.Time) []store.HealthSample {
	filtered := make([]store.HealthSample, 0, len(samples))

	if !window.Bounded() {
		return append(filtered, samples...)
	}

	start := now.Add(-window.Duration())
	for _, sample := range samples {
		if !sample.Timestamp.Before(start) {
			filtered = append(filtered, sample)
		}
	}

	return filtered
}

func filterEvents(events []store.RemediationEvent, window Window, now time.Time) []store.RemediationEvent {
	filtered := make([]store.RemediationEvent, 0, len(events))

	if !window.Bounded() {
		return append(filtered, events...)
	}

	start := now.Add(-window.Duration())
	for _, event := range events {
		if !event.Timestamp.Before(start) {
			filtered = append(filtered, event)
		}
	}

	return filtered
}

func countStatuses(samples []store.HealthSample) StatusCounts {
	var counts StatusCounts
	for _, sample := range samples {
		switch success := sample.SuccessPercent; {
		case success.IsMissing():
			// undefined success contributes to no bucket
		case success == 100:
			counts.FullyUp++
		case success == 0:
			counts.Down++
		default:
			counts.PartiallyUp++
		}
	}

	return counts
}

// Descending returns the samples in timestamp-descending order for
// tabular display, without touching the ascending chart series.
func (r Result) Descending() []store.HealthSample {
	reversed := make([]store.HealthSample, len(r.Samples))
	for i, sample := range r.Samples {
		reversed[len(r.Samples)-1-i] = sample
	}

	return reversed
}

// YRange calculates a chart axis range with a buffer above the observed
// maximum, capped at the domain's absolute ceiling. An empty or all-missing
// series yields the full range.
func YRange(series []store.Metric, absoluteMax float64) [2]float64 {
	return YRangeBuffered(series, absoluteMax, defaultBufferRatio)
}

func YRangeBuffered(series []store.Metric, absoluteMax, bufferRatio float64) [2]float64 {
	seriesMax, found := 0.0, false
	for _, v := range series {
		if v.IsMissing() {
			continue
		}
		if !found || float64(v) > seriesMax {
			seriesMax = float64(v)
			found = true
		}
	}

	if !found {
		return [2]float64{0, absoluteMax}
	}

	dynamicMax := seriesMax * (1 + bufferRatio)
	if dynamicMax > absoluteMax {
		dynamicMax = absoluteMax
	}

	return [2]float64{0, dynamicMax}
}
