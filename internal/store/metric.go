package store

import (
	"encoding/json"
	"math"
	"strconv"
)

// Metric is a numeric observation that may be missing. Missing values are
// carried as NaN internally and marshal to JSON null, so an unparseable
// reading never propagates as a bogus number.
type Metric float64

// Missing returns the missing-value marker.
func Missing() Metric {
	return Metric(math.NaN())
}

// IsMissing reports whether the metric holds no value.
func (m Metric) IsMissing() bool {
	return math.IsNaN(float64(m))
}

// Clip bounds the metric to [low, high]. Missing values stay missing.
func (m Metric) Clip(low, high float64) Metric {
	if m.IsMissing() {
		return m
	}
	v := float64(m)
	if v < low {
		return Metric(low)
	}
	if v > high {
		return Metric(high)
	}

	return m
}

func (m Metric) MarshalJSON() ([]byte, error) {
	if m.IsMissing() {
		return []byte("null"), nil
	}

	return json.Marshal(float64(m))
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Missing()
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Metric(v)

	return nil
}

// parseMetric coerces a raw column value to a Metric. Unparseable or NULL
// values become the missing marker rather than an error.
func parseMetric(raw string, valid bool) Metric {
	if !valid {
		return Missing()
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Missing()
	}

	return Metric(v)
}
