package remediation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/netpulse/internal/device"
	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/remediation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu           sync.Mutex
	offCalls     int
	onCalls      int
	refreshCalls int
	offErr       error
	onErrs       []error
	refreshErr   error
	diagnostics  device.Diagnostics
	diagErr      error
	offStarted   chan struct{}
	offRelease   chan struct{}
}

func (f *fakeTransport) PowerOff(context.Context) error {
	f.mu.Lock()
	f.offCalls++
	f.mu.Unlock()
	if f.offStarted != nil {
		close(f.offStarted)
		<-f.offRelease
	}
	return f.offErr
}

func (f *fakeTransport) PowerOn(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onCalls++
	if len(f.onErrs) > 0 {
		err := f.onErrs[0]
		f.onErrs = f.onErrs[1:]
		return err
	}
	return nil
}

func (f *fakeTransport) RefreshSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshCalls++
	return f.refreshErr
}

func (f *fakeTransport) GetDiagnostics(context.Context) (device.Diagnostics, error) {
	return f.diagnostics, f.diagErr
}

func (*fakeTransport) Name() string { return "test-plug" }

type fakeAppender struct {
	mu      sync.Mutex
	reasons []string
	err     error
}

func (f *fakeAppender) AppendRemediationEvent(_ context.Context, _ time.Time, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.reasons = append(f.reasons, reason)
	return nil
}

func newTestController(t *testing.T, transport *fakeTransport, events *fakeAppender) *remediation.Controller {
	t.Helper()

	ctrl, err := remediation.NewController(transport, events, remediation.Config{
		Wait:          time.Millisecond,
		RetryAttempts: 3,
	})
	require.NoError(t, err)

	return ctrl
}

func deviceFault() error {
	return errors.New().New(errors.ErrDeviceFault)
}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	transport := &fakeTransport{diagnostics: device.Diagnostics{"model": "P100"}}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err)

	assert.Equal(t, remediation.Succeeded, result.State)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, transport.offCalls)
	assert.Equal(t, 1, transport.onCalls)
	assert.Equal(t, 0, transport.refreshCalls, "no refresh needed on a clean run")
	assert.Equal(t, []string{"manually triggered"}, events.reasons)
	assert.Equal(t, "P100", result.Diagnostics["model"])
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	transport := &fakeTransport{onErrs: []error{deviceFault()}}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err)

	assert.Equal(t, remediation.Succeeded, result.State)
	assert.Equal(t, 2, result.Attempts, "failed primary plus one successful retry")
	assert.Equal(t, 2, transport.onCalls)
	assert.Equal(t, 1, transport.refreshCalls, "session refreshed before the retry")
	assert.Len(t, events.reasons, 1, "exactly one event for the whole cycle")
}

func TestRunExhaustsRetries(t *testing.T) {
	transport := &fakeTransport{
		onErrs: []error{deviceFault(), deviceFault(), deviceFault()},
	}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "Internet down for 5+ minutes")
	require.Error(t, err)

	assert.True(t, errors.HasCode(err, errors.ErrRetriesExhausted))
	assert.Equal(t, remediation.Failed, result.State)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, transport.onCalls)
	assert.Empty(t, events.reasons, "no event rows on a failed cycle")
}

func TestRunPowerOffFaultEntersRetryPath(t *testing.T) {
	transport := &fakeTransport{offErr: deviceFault()}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err)

	assert.Equal(t, remediation.Succeeded, result.State)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, transport.refreshCalls, "power-off fault forces a refresh before power on")
}

func TestRunTimeoutTreatedAsFault(t *testing.T) {
	timeout := errors.New().New(errors.ErrDeviceTimeout)
	transport := &fakeTransport{onErrs: []error{timeout}}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err)
	assert.Equal(t, remediation.Succeeded, result.State)
	assert.Equal(t, 2, result.Attempts)
}

func TestRunRejectsConcurrentTrigger(t *testing.T) {
	transport := &fakeTransport{
		offStarted: make(chan struct{}),
		offRelease: make(chan struct{}),
	}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := ctrl.Run(context.Background(), "manually triggered")
		assert.NoError(t, err)
	}()

	<-transport.offStarted
	_, err := ctrl.Run(context.Background(), "second trigger")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRemediationBusy))

	close(transport.offRelease)
	<-done
}

func TestRunAuditFailureDoesNotMaskSuccess(t *testing.T) {
	transport := &fakeTransport{}
	events := &fakeAppender{err: errors.New().New(errors.ErrStoreUnavailable)}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err, "a failed audit write never undoes a successful cycle")
	assert.Equal(t, remediation.Succeeded, result.State)
}

func TestRunDiagnosticsFailureKeepsTerminalState(t *testing.T) {
	transport := &fakeTransport{diagErr: deviceFault()}
	events := &fakeAppender{}
	ctrl := newTestController(t, transport, events)

	result, err := ctrl.Run(context.Background(), "manually triggered")
	require.NoError(t, err)
	assert.Equal(t, remediation.Succeeded, result.State)
	assert.Nil(t, result.Diagnostics)
}

func TestNewControllerValidatesConfig(t *testing.T) {
	_, err := remediation.NewController(&fakeTransport{}, &fakeAppender{}, remediation.Config{
		RetryAttempts: 0,
	})
	require.Error(t, err)
}
