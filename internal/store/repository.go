package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	// Clipping bounds applied once at ingestion. Latency spikes above the
	// cap keep their "failure happened" signal without dominating chart
	// scales; success percentage is never clipped.
	MaxLatencyMS     = 500
	MaxPacketLossPct = 100
	minMetricValue   = 0
)

type repository struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens the sample database, initializing the schema on first use.
func Open(cfg Config) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == 0 {
		if err := InitSchema(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	logger.Debug().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Sample store opened")

	return &repository{
		db:   db,
		path: cfg.DBPath,
	}, nil
}

// Identity returns a stable identifier for this store, used in cache keys.
func (r *repository) Identity() string {
	return r.path
}

func (r *repository) FetchSamples(ctx context.Context) ([]HealthSample, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectSamplesSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var samples []HealthSample
	for rows.Next() {
		var (
			ts                        string
			status                    sql.NullString
			success, avg, max, minLat sql.NullString
			loss                      sql.NullString
		)
		if err := rows.Scan(&ts, &status, &success, &avg, &max, &minLat, &loss); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}

		timestamp, ok := parseTimestamp(ts)
		if !ok {
			logger.Warn().Str("timestamp", ts).Msg("Skipping sample with unparseable timestamp")
			continue
		}

		samples = append(samples, HealthSample{
			Timestamp:         timestamp,
			StatusMessage:     status.String,
			SuccessPercent:    parseMetric(success.String, success.Valid),
			AvgLatencyMS:      parseMetric(avg.String, avg.Valid).Clip(minMetricValue, MaxLatencyMS),
			MaxLatencyMS:      parseMetric(max.String, max.Valid).Clip(minMetricValue, MaxLatencyMS),
			MinLatencyMS:      parseMetric(minLat.String, minLat.Valid).Clip(minMetricValue, MaxLatencyMS),
			PacketLossPercent: parseMetric(loss.String, loss.Valid).Clip(minMetricValue, MaxPacketLossPct),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return samples, nil
}

func (r *repository) FetchRemediationEvents(ctx context.Context) ([]RemediationEvent, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectEventsSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var events []RemediationEvent
	for rows.Next() {
		var ts, reason string
		if err := rows.Scan(&ts, &reason); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}

		timestamp, ok := parseTimestamp(ts)
		if !ok {
			logger.Warn().Str("timestamp", ts).Msg("Skipping event with unparseable timestamp")
			continue
		}

		events = append(events, RemediationEvent{
			Timestamp: timestamp,
			Reason:    reason,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return events, nil
}

func (r *repository) AppendRemediationEvent(ctx context.Context, timestamp time.Time, reason string) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, insertEventSQL, timestamp.Format(timeLayout), reason); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	logger.Debug().Msg("Sample store closed")

	return nil
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range []string{timeLayout, time.RFC3339} {
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, true
		}
	}

	return time.Time{}, false
}
