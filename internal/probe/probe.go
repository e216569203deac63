package probe

import (
	"context"
	"net"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/netpulse/internal/logger"
)

const (
	// DefaultAddress is a public DNS resolver; only connect success is
	// consulted, no payload is ever read.
	DefaultAddress = "8.8.8.8:53"

	DefaultTimeout  = 2 * time.Second
	DefaultInterval = 10 * time.Second
)

// Prober performs a cheap reachability check against a well-known
// endpoint. Check never returns an error; any connection failure simply
// reads as "down".
type Prober struct {
	Address string
	Timeout time.Duration
}

func New(address string, timeout time.Duration) *Prober {
	if address == "" {
		address = DefaultAddress
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Prober{
		Address: address,
		Timeout: timeout,
	}
}

// Check reports whether the endpoint accepted a connection within the
// timeout.
func (p *Prober) Check() bool {
	conn, err := net.DialTimeout("tcp", p.Address, p.Timeout)
	if err != nil {
		return false
	}
	conn.Close()

	return true
}

// Watcher runs a prober on a fixed short cycle and holds only the last
// result. It shares no state with the aggregate refresh cycle.
type Watcher struct {
	prober    *Prober
	interval  time.Duration
	up        atomic.Bool
	downSince atomic.Int64
}

func NewWatcher(prober *Prober, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Watcher{
		prober:   prober,
		interval: interval,
	}
}

// Run probes until the context is cancelled. An initial check runs
// immediately so the indicator is meaningful before the first tick.
func (w *Watcher) Run(ctx context.Context) {
	w.update(w.prober.Check())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.update(w.prober.Check())
		}
	}
}

// Up returns the last probe result.
func (w *Watcher) Up() bool {
	return w.up.Load()
}

// DownFor returns how long connectivity has been continuously down, or
// zero while up.
func (w *Watcher) DownFor() time.Duration {
	since := w.downSince.Load()
	if since == 0 {
		return 0
	}

	return time.Since(time.Unix(0, since))
}

func (w *Watcher) update(up bool) {
	previous := w.up.Swap(up)
	if up {
		w.downSince.Store(0)
	} else if w.downSince.Load() == 0 {
		w.downSince.Store(time.Now().UnixNano())
	}
	if previous != up {
		logger.Info().Bool("up", up).Str("endpoint", w.prober.Address).Msg("Internet status changed")
	}
}
