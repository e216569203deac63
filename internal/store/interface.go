package store

import (
	"context"
	"time"
)

// Store provides read access to persisted health samples and read+append
// access to the remediation event log.
type Store interface {
	FetchSamples(ctx context.Context) ([]HealthSample, error)
	FetchRemediationEvents(ctx context.Context) ([]RemediationEvent, error)
	AppendRemediationEvent(ctx context.Context, timestamp time.Time, reason string) error
	Identity() string
	Close() error
}

// HealthSample is one monitoring observation. Samples are immutable once
// written; the collector owns creation and this package only reads them.
type HealthSample struct {
	Timestamp         time.Time `json:"timestamp"`
	StatusMessage     string    `json:"status_message"`
	SuccessPercent    Metric    `json:"success_percent"`
	AvgLatencyMS      Metric    `json:"avg_latency_ms"`
	MaxLatencyMS      Metric    `json:"max_latency_ms"`
	MinLatencyMS      Metric    `json:"min_latency_ms"`
	PacketLossPercent Metric    `json:"packet_loss_percent"`
}

// RemediationEvent records one power-cycle action. Append-only.
type RemediationEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason"`
}
