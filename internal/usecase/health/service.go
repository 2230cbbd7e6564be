package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means search works but analytics is failing.
	Degraded Status = "degraded"
	// Unhealthy means the datastore is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names in Report.Checks.
const (
	ComponentDatastore = "datastore"
	ComponentAnalytics = "analytics"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	datastore Pinger
	analytics Pinger
	timeout   time.Duration
}

// New creates a Service. analytics can be nil.
func New(datastore, analytics Pinger) *Service {
	return &Service{datastore: datastore, analytics: analytics, timeout: defaultCheckTimeout}
}

// Check pings every component, each bounded by the check timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		ComponentDatastore: s.ping(ctx, s.datastore),
	}
	if s.analytics != nil {
		checks[ComponentAnalytics] = s.ping(ctx, s.analytics)
	}

	status := Healthy
	switch {
	case checks[ComponentDatastore] == CheckError:
		status = Unhealthy
	case checks[ComponentAnalytics] == CheckError:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func (s *Service) ping(ctx context.Context, p Pinger) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
