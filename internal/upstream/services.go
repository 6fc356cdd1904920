package upstream

import (
	"context"
	"net/http"

	"github.com/sourcegraph/conc"

	"github.com/hpungsan/triage/internal/config"
)

// Service names.
const (
	ServiceOps      = "ops"
	ServiceTerminal = "terminal"
)

// Ops wraps the ops service.
type Ops struct{ *Client }

// Who reports the identity the ops service sees. Used as its health probe.
func (o Ops) Who(ctx context.Context) Result {
	return o.Do(ctx, http.MethodGet, "/who", nil)
}

// Terminal wraps the terminal service.
type Terminal struct{ *Client }

// Health probes the terminal service.
func (t Terminal) Health(ctx context.Context) Result {
	return t.Do(ctx, http.MethodGet, "/health", nil)
}

// Services bundles the sibling clients built from config.
type Services struct {
	Ops      Ops
	Terminal Terminal
}

// New builds the sibling clients from config.
func New(cfg *config.Config) *Services {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	timeout := cfg.UpstreamTimeout()
	return &Services{
		Ops:      Ops{NewClient(ServiceOps, cfg.OpsURL, timeout)},
		Terminal: Terminal{NewClient(ServiceTerminal, cfg.TerminalURL, timeout)},
	}
}

// HealthReport is the combined sibling health.
type HealthReport struct {
	Success  bool              `json:"success"`
	Services map[string]Result `json:"services"`
}

// Health probes every sibling concurrently. Success is true only when all
// probes succeed; a failing sibling never fails the report itself.
func (s *Services) Health(ctx context.Context) HealthReport {
	var opsRes, termRes Result
	var wg conc.WaitGroup
	wg.Go(func() { opsRes = s.Ops.Who(ctx) })
	wg.Go(func() { termRes = s.Terminal.Health(ctx) })
	wg.Wait()

	return HealthReport{
		Success: opsRes.Success && termRes.Success,
		Services: map[string]Result{
			ServiceOps:      opsRes,
			ServiceTerminal: termRes,
		},
	}
}
