package remediation

import (
	"context"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/netpulse/internal/device"
	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/logger"
)

// EventAppender records completed power-cycle actions durably.
// Satisfied by store.Store.
type EventAppender interface {
	AppendRemediationEvent(ctx context.Context, timestamp time.Time, reason string) error
}

// Result reports the terminal outcome of one power-cycle invocation.
type Result struct {
	State       State              `json:"state"`
	Attempts    int                `json:"attempts"`
	Reason      string             `json:"reason"`
	Diagnostics device.Diagnostics `json:"diagnostics,omitempty"`
}

// Controller sequences a device power cycle: off, wait, on, verify.
// Faults after power-off enter the session-refresh retry path; retry
// exhaustion is reported, never swallowed, and the device is left in
// whatever state the last real hardware call produced.
type Controller struct {
	transport device.Transport
	events    EventAppender
	cfg       Config
	inFlight  atomic.Bool
}

func NewController(transport device.Transport, events EventAppender, cfg Config) (*Controller, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &Controller{
		transport: transport,
		events:    events,
		cfg:       cfg,
	}, nil
}

// Run executes one full power cycle. Overlapping power actions on one
// device are unsafe, so a trigger arriving while a cycle is in flight is
// rejected with ErrBusy. Only the pre-off transition can be cancelled;
// once power-off is issued the sequence runs to a terminal state even if
// the caller goes away.
func (c *Controller) Run(ctx context.Context, reason string) (Result, error) {
	errFactory := errors.New()

	if !c.inFlight.CompareAndSwap(false, true) {
		return Result{State: Idle, Reason: reason}, errFactory.New(ErrBusy)
	}
	defer c.inFlight.Store(false)

	if err := ctx.Err(); err != nil {
		// Cancelled before any side effect; the only clean abort point.
		return Result{State: Idle, Reason: reason}, errFactory.Wrap(errors.ErrOperationFailed, err)
	}
	runCtx := context.WithoutCancel(ctx)

	logger.Info().
		Str("device", c.transport.Name()).
		Str("reason", reason).
		Msg("Starting power cycle")

	var lastErr error
	if err := c.transport.PowerOff(runCtx); err != nil {
		logger.Warn().Err(err).Str("state", PoweringOff.String()).Msg("Power off failed, entering retry path")
		lastErr = err
	} else {
		logger.Info().Str("device", c.transport.Name()).Msg("Device has been turned off")
		logger.Debug().Dur("wait", c.cfg.Wait).Str("state", Waiting.String()).Msg("Waiting before power on")
		time.Sleep(c.cfg.Wait)
	}

	attempts, err := c.powerOn(runCtx, lastErr)
	if err != nil {
		logger.Error().
			Err(err).
			Int("attempts", attempts).
			Str("state", Failed.String()).
			Msg("All retry attempts failed, manual intervention required")

		return Result{State: Failed, Attempts: attempts, Reason: reason},
			errFactory.Wrap(ErrRetriesExhausted, err)
	}

	logger.Info().
		Str("device", c.transport.Name()).
		Int("attempts", attempts).
		Msg("Device has been turned back on")

	c.recordEvent(runCtx, reason)

	return Result{
		State:       Succeeded,
		Attempts:    attempts,
		Reason:      reason,
		Diagnostics: c.fetchDiagnostics(runCtx),
	}, nil
}

// powerOn issues the power-on command with bounded retries. The primary
// attempt counts as attempt 1; each later attempt refreshes the device
// session first, as does attempt 1 when power-off already faulted.
func (c *Controller) powerOn(ctx context.Context, priorFault error) (int, error) {
	lastErr := priorFault
	attempts := 0

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		attempts = attempt

		if attempt > 1 || lastErr != nil {
			logger.Info().
				Int("attempt", attempt).
				Int("max_attempts", c.cfg.RetryAttempts).
				Str("state", RetryingRefresh.String()).
				Msg("Refreshing device session before retry")
			if err := c.transport.RefreshSession(ctx); err != nil {
				logger.Warn().Err(err).Int("attempt", attempt).Msg("Session refresh failed")
				lastErr = err
				continue
			}
		}

		logger.Info().
			Int("attempt", attempt).
			Int("max_attempts", c.cfg.RetryAttempts).
			Str("state", PoweringOn.String()).
			Msg("Issuing power on")
		if err := c.transport.PowerOn(ctx); err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Power on attempt failed")
			lastErr = err
			continue
		}

		return attempts, nil
	}

	return attempts, lastErr
}

// recordEvent appends the audit row. A failed audit write is logged but
// never masks the successful power cycle that already happened.
func (c *Controller) recordEvent(ctx context.Context, reason string) {
	if err := c.events.AppendRemediationEvent(ctx, time.Now(), reason); err != nil {
		logger.Error().Err(err).Str("reason", reason).Msg("Failed to record remediation event")
	}
}

// fetchDiagnostics is best-effort; its failure never changes the
// terminal state.
func (c *Controller) fetchDiagnostics(ctx context.Context) device.Diagnostics {
	info, err := c.transport.GetDiagnostics(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to retrieve device info")
		return nil
	}

	logger.Debug().Interface("device_info", info).Msg("Device info after power cycle")

	return info
}
