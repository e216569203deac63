package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"codeberg.org/mutker/netpulse/internal/aggregate"
	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/logger"
	"codeberg.org/mutker/netpulse/internal/remediation"
	"codeberg.org/mutker/netpulse/internal/store"
)

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "ok")
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"internet_up": h.liveness.Up(),
	})
}

// aggregateWindow serves the windowed view of the sample log. The store
// being unreachable never breaks this path; the response degrades to an
// empty view instead.
func (h *Handler) aggregateWindow(w http.ResponseWriter, r *http.Request) {
	window := aggregate.ParseWindow(r.URL.Query().Get("window"))

	result, err := h.cache.GetOrCompute(r.Context(), h.store.Identity(), window, func(ctx context.Context) (aggregate.Result, error) {
		samples, err := h.store.FetchSamples(ctx)
		if err != nil {
			return aggregate.Result{}, err
		}
		events, err := h.store.FetchRemediationEvents(ctx)
		if err != nil {
			return aggregate.Result{}, err
		}

		return aggregate.Aggregate(samples, events, window, time.Now()), nil
	})
	if err != nil {
		logger.Warn().Err(err).Str("window", string(window)).Msg("Serving empty aggregate, store unavailable")
		result = aggregate.Result{
			Window:  window,
			Samples: []store.HealthSample{},
			Events:  []store.RemediationEvent{},
		}
	}

	writeSuccess(w, http.StatusOK, aggregatePayload(result))
}

// aggregatePayload attaches the chart axis ranges derived from the
// filtered series.
func aggregatePayload(result aggregate.Result) map[string]any {
	latencies := make([]store.Metric, 0, len(result.Samples))
	losses := make([]store.Metric, 0, len(result.Samples))
	for _, sample := range result.Samples {
		latencies = append(latencies, sample.AvgLatencyMS)
		losses = append(losses, sample.PacketLossPercent)
	}

	return map[string]any{
		"window":  result.Window,
		"samples": result.Samples,
		"events":  result.Events,
		"counts":  result.Counts,
		"y_range": map[string]any{
			"latency_ms":      aggregate.YRange(latencies, store.MaxLatencyMS),
			"packet_loss_pct": aggregate.YRange(losses, store.MaxPacketLossPct),
		},
	}
}

func (h *Handler) remediate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, http.StatusBadRequest, string(errors.ErrInvalidArgument), "request body must be valid JSON")
		return
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = remediation.ReasonManual
	}

	result, err := h.remediator.Run(r.Context(), reason)
	if err != nil {
		switch {
		case errors.HasCode(err, errors.ErrRemediationBusy):
			writeError(w, http.StatusConflict, string(errors.ErrRemediationBusy),
				"a power cycle is already in progress")
		case errors.HasCode(err, errors.ErrRetriesExhausted):
			writeErrorData(w, http.StatusBadGateway, string(errors.ErrRetriesExhausted),
				"device did not come back, manual intervention required", result)
		default:
			writeError(w, http.StatusInternalServerError, string(errors.ErrInternal),
				"power cycle failed")
		}
		return
	}

	writeSuccess(w, http.StatusOK, result)
}
