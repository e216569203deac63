package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	"codeberg.org/mutker/netpulse/internal/errors"
	"codeberg.org/mutker/netpulse/internal/logger"
)

// plugClient controls a smart plug over its local HTTP JSON API. A login
// call yields a session token; the token can go stale, so RefreshSession
// re-authenticates in place.
type plugClient struct {
	cfg    Config
	client *http.Client
	mu     sync.Mutex
	token  string
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type stateRequest struct {
	DeviceOn bool `json:"device_on"`
}

// NewPlug builds a smart-plug transport from configuration.
func NewPlug(cfg Config) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &plugClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.timeout(),
		},
	}, nil
}

func (p *plugClient) Name() string {
	if p.cfg.Name != "" {
		return p.cfg.Name
	}

	return p.cfg.Address
}

func (p *plugClient) PowerOff(ctx context.Context) error {
	return p.setState(ctx, false)
}

func (p *plugClient) PowerOn(ctx context.Context) error {
	return p.setState(ctx, true)
}

func (p *plugClient) RefreshSession(ctx context.Context) error {
	errFactory := errors.New()

	var resp loginResponse
	err := p.post(ctx, "/app/login", loginRequest{
		Username: p.cfg.Username,
		Password: p.cfg.Password,
	}, &resp)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return errFactory.WithMessage(ErrSession, "login returned no session token")
	}

	p.mu.Lock()
	p.token = resp.Token
	p.mu.Unlock()

	logger.Debug().Str("device", p.Name()).Msg("Device session refreshed")

	return nil
}

func (p *plugClient) GetDiagnostics(ctx context.Context) (Diagnostics, error) {
	errFactory := errors.New()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url("/app/device"), nil)
	if err != nil {
		return nil, errFactory.Wrap(ErrFault, err)
	}

	resp, err := p.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var info Diagnostics
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errFactory.Wrap(ErrFault, err)
	}

	return info, nil
}

func (p *plugClient) setState(ctx context.Context, on bool) error {
	if err := p.ensureSession(ctx); err != nil {
		return err
	}

	return p.post(ctx, "/app/device", stateRequest{DeviceOn: on}, nil)
}

func (p *plugClient) ensureSession(ctx context.Context) error {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token != "" {
		return nil
	}

	return p.RefreshSession(ctx)
}

func (p *plugClient) post(ctx context.Context, path string, payload, out any) error {
	errFactory := errors.New()

	body, err := json.Marshal(payload)
	if err != nil {
		return errFactory.Wrap(ErrFault, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url(path), bytes.NewReader(body))
	if err != nil {
		return errFactory.Wrap(ErrFault, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errFactory.Wrap(ErrFault, err)
		}
	}

	return nil
}

func (p *plugClient) do(req *http.Request) (*http.Response, error) {
	errFactory := errors.New()

	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errFactory.Wrap(ErrTimeout, err)
		}
		return nil, errFactory.Wrap(ErrFault, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, errFactory.WithData(ErrFault, fmt.Sprintf("device returned status %d", resp.StatusCode))
	}

	return resp, nil
}

func (p *plugClient) url(path string) string {
	return "http://" + p.cfg.Address + path
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
