package device

import "context"

// Transport is the vendor-facing control surface for the power-cycled
// network device. Every call may fail with a transport-level fault;
// timeouts surface as errors carrying ErrTimeout rather than hanging.
type Transport interface {
	PowerOff(ctx context.Context) error
	PowerOn(ctx context.Context) error
	RefreshSession(ctx context.Context) error
	GetDiagnostics(ctx context.Context) (Diagnostics, error)
	Name() string
}

// Diagnostics is the device's structured info payload, reported as-is.
type Diagnostics map[string]any
