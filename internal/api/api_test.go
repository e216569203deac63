package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/netpulse/internal/aggregate"
	"codeberg.org/mutker/netpulse/internal/api"
	"codeberg.org/mutker/netpulse/internal/cache"
	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/remediation"
	"codeberg.org/mutker/netpulse/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	samples []store.HealthSample
	events  []store.RemediationEvent
	err     error
}

func (f *fakeStore) FetchSamples(context.Context) ([]store.HealthSample, error) {
	return f.samples, f.err
}

func (f *fakeStore) FetchRemediationEvents(context.Context) ([]store.RemediationEvent, error) {
	return f.events, f.err
}

func (f *fakeStore) AppendRemediationEvent(context.Context, time.Time, string) error {
	return f.err
}

func (*fakeStore) Identity() string { return "test-store" }
func (*fakeStore) Close() error     { return nil }

type fakeRemediator struct {
	result  remediation.Result
	err     error
	reasons []string
}

func (f *fakeRemediator) Run(_ context.Context, reason string) (remediation.Result, error) {
	f.reasons = append(f.reasons, reason)
	return f.result, f.err
}

type fakeLiveness struct {
	up bool
}

func (f *fakeLiveness) Up() bool { return f.up }

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, st store.Store, remediator api.Remediator, liveness api.Liveness) *httptest.Server {
	t.Helper()

	cacheSvc := cache.NewWithBackend(cache.NewMemoryBackend(time.Minute), time.Minute)
	server := httptest.NewServer(api.NewRouter(api.NewHandler(st, cacheSvc, remediator, liveness)))
	t.Cleanup(server.Close)

	return server
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	return env
}

func TestAggregateEndpoint(t *testing.T) {
	now := time.Now()
	st := &fakeStore{
		samples: []store.HealthSample{
			{Timestamp: now.Add(-time.Hour), SuccessPercent: 100, AvgLatencyMS: 20},
			{Timestamp: now.Add(-2 * time.Hour), SuccessPercent: 0},
		},
		events: []store.RemediationEvent{
			{Timestamp: now.Add(-90 * time.Minute), Reason: remediation.ReasonOutage},
		},
	}
	server := newTestServer(t, st, &fakeRemediator{}, &fakeLiveness{up: true})

	resp, err := http.Get(server.URL + "/api/v1/aggregate?window=last_24_hours")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Window  aggregate.Window         `json:"window"`
		Samples []store.HealthSample     `json:"samples"`
		Events  []store.RemediationEvent `json:"events"`
		Counts  aggregate.StatusCounts   `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	assert.Equal(t, aggregate.Last24Hours, data.Window)
	assert.Len(t, data.Samples, 2)
	assert.Len(t, data.Events, 1)
	assert.Equal(t, 1, data.Counts.FullyUp)
	assert.Equal(t, 1, data.Counts.Down)
}

func TestAggregateStoreFaultDegradesToEmptyView(t *testing.T) {
	st := &fakeStore{err: errors.New().New(errors.ErrStoreUnavailable)}
	server := newTestServer(t, st, &fakeRemediator{}, &fakeLiveness{})

	resp, err := http.Get(server.URL + "/api/v1/aggregate?window=last_12_hours")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, "a broken store never breaks the read path")

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Samples []store.HealthSample `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Empty(t, data.Samples)
}

func TestAggregateUnknownWindowDefaultsToAllTime(t *testing.T) {
	server := newTestServer(t, &fakeStore{}, &fakeRemediator{}, &fakeLiveness{})

	resp, err := http.Get(server.URL + "/api/v1/aggregate?window=bogus")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var data struct {
		Window aggregate.Window `json:"window"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, aggregate.AllTime, data.Window)
}

func TestRemediateDefaultsReason(t *testing.T) {
	remediator := &fakeRemediator{
		result: remediation.Result{State: remediation.Succeeded, Attempts: 1},
	}
	server := newTestServer(t, &fakeStore{}, remediator, &fakeLiveness{})

	resp, err := http.Post(server.URL+"/api/v1/remediate", "application/json", strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, []string{remediation.ReasonManual}, remediator.reasons)
}

func TestRemediateCarriesCustomReason(t *testing.T) {
	remediator := &fakeRemediator{
		result: remediation.Result{State: remediation.Succeeded, Attempts: 1},
	}
	server := newTestServer(t, &fakeStore{}, remediator, &fakeLiveness{})

	body := strings.NewReader(`{"reason": "router locked up"}`)
	resp, err := http.Post(server.URL+"/api/v1/remediate", "application/json", body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, []string{"router locked up"}, remediator.reasons)
}

func TestRemediateBusyConflicts(t *testing.T) {
	remediator := &fakeRemediator{err: errors.New().New(errors.ErrRemediationBusy)}
	server := newTestServer(t, &fakeStore{}, remediator, &fakeLiveness{})

	resp, err := http.Post(server.URL+"/api/v1/remediate", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, string(errors.ErrRemediationBusy), env.Code)
}

func TestRemediateExhaustedReportsBadGateway(t *testing.T) {
	remediator := &fakeRemediator{
		result: remediation.Result{State: remediation.Failed, Attempts: 3},
		err:    errors.New().New(errors.ErrRetriesExhausted),
	}
	server := newTestServer(t, &fakeStore{}, remediator, &fakeLiveness{})

	resp, err := http.Post(server.URL+"/api/v1/remediate", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, string(errors.ErrRetriesExhausted), env.Code)

	var result remediation.Result
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, remediation.Failed, result.State)
	assert.Equal(t, 3, result.Attempts)
}

func TestRemediateRejectsMalformedBody(t *testing.T) {
	remediator := &fakeRemediator{}
	server := newTestServer(t, &fakeStore{}, remediator, &fakeLiveness{})

	resp, err := http.Post(server.URL+"/api/v1/remediate", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	assert.Empty(t, remediator.reasons, "no power cycle on a bad request")
}

func TestStatusReportsProbeResult(t *testing.T) {
	server := newTestServer(t, &fakeStore{}, &fakeRemediator{}, &fakeLiveness{up: true})

	resp, err := http.Get(server.URL + "/api/v1/status")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var data struct {
		InternetUp bool `json:"internet_up"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.True(t, data.InternetUp)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, &fakeStore{}, &fakeRemediator{}, &fakeLiveness{})

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
