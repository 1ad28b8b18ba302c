// Package health runs named preflight checks concurrently and folds their
// results into one report.
package health

import (
	"context"
	"crypto/x509"
	"fmt"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Status represents the outcome of a check
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// CheckResult represents the result of a single check
type CheckResult struct {
	Name      string                 `json:"name"`
	Status    Status                 `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Checker is one named check
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewChecker creates a named checker from a function
func NewChecker(name string, fn func(ctx context.Context) CheckResult) Checker {
	return &namedCheck{name: name, fn: fn}
}

func (c *namedCheck) Name() string                          { return c.name }
func (c *namedCheck) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// Registry holds the checks run before talking to a bank
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	target   string
}

// NewRegistry creates an empty registry for target
func NewRegistry(target string) *Registry {
	return &Registry{
		checkers: make(map[string]Checker),
		target:   target,
	}
}

// Register adds a checker, replacing one with the same name
func (r *Registry) Register(checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[checker.Name()] = checker
}

// RegisterFunc adds a check function to the registry
func (r *Registry) RegisterFunc(name string, fn func(ctx context.Context) CheckResult) {
	r.Register(NewChecker(name, fn))
}

// Check runs all checks concurrently. Results are sorted by name; the overall
// status is the worst individual status.
func (r *Registry) Check(ctx context.Context) *Report {
	r.mu.RLock()
	checkers := make([]Checker, 0, len(r.checkers))
	for _, c := range r.checkers {
		checkers = append(checkers, c)
	}
	r.mu.RUnlock()

	report := &Report{
		Target:    r.target,
		Timestamp: time.Now(),
		Checks:    make([]CheckResult, len(checkers)),
	}

	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, c Checker) {
			defer wg.Done()
			report.Checks[i] = run(ctx, c)
		}(i, checker)
	}
	wg.Wait()

	sort.Slice(report.Checks, func(i, j int) bool { return report.Checks[i].Name < report.Checks[j].Name })

	report.Status = StatusHealthy
	for _, result := range report.Checks {
		switch result.Status {
		case StatusUnhealthy, StatusUnknown:
			report.Status = StatusUnhealthy
		case StatusDegraded:
			if report.Status != StatusUnhealthy {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// run executes c, turning a panic into an unhealthy result
func run(ctx context.Context, c Checker) (result CheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			result = CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf("panic: %v", r)}
		}
		result.Duration = time.Since(start)
		result.Timestamp = time.Now()
		if result.Name == "" {
			result.Name = c.Name()
		}
	}()
	return c.Check(ctx)
}

// Report is the combined result of a registry run
type Report struct {
	Target    string        `json:"target"`
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks"`
}

// Healthy reports whether no check failed
func (r *Report) Healthy() bool {
	return r.Status != StatusUnhealthy
}

// String returns a one-line summary of the report
func (r *Report) String() string {
	return fmt.Sprintf("Target: %s, Status: %s, Checks: %d", r.Target, r.Status, len(r.Checks))
}

// CertificateCheck reports the validity window of cert. It is degraded when
// fewer than warnBefore remain and unhealthy once expired or not yet valid.
func CertificateCheck(name string, cert *x509.Certificate, warnBefore time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{Name: name, Status: StatusHealthy}
		if cert == nil {
			result.Status = StatusUnhealthy
			result.Message = "no certificate"
			return result
		}

		now := time.Now()
		remaining := cert.NotAfter.Sub(now)
		result.Details = map[string]interface{}{
			"subject":   cert.Subject.CommonName,
			"not_after": cert.NotAfter.Format(time.RFC3339),
		}
		switch {
		case now.Before(cert.NotBefore):
			result.Status = StatusUnhealthy
			result.Message = "certificate not yet valid"
		case remaining <= 0:
			result.Status = StatusUnhealthy
			result.Message = "certificate expired"
		case remaining < warnBefore:
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("certificate expires in %s", remaining.Round(time.Minute))
		default:
			result.Message = fmt.Sprintf("valid until %s", cert.NotAfter.Format(time.RFC3339))
		}
		return result
	})
}

// GRPCCheck runs the standard grpc.health.v1 Check for service over conn.
// The call is always sent as protobuf, whatever content-subtype conn uses
// by default.
func GRPCCheck(name string, conn grpc.ClientConnInterface, service string, timeout time.Duration) Checker {
	return NewChecker(name, func(ctx context.Context) CheckResult {
		result := CheckResult{
			Name:    name,
			Status:  StatusHealthy,
			Details: map[string]interface{}{"service": service},
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service},
			grpc.CallContentSubtype("proto"))
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
			result.Details["code"] = status.Code(err).String()
			return result
		}

		result.Message = resp.GetStatus().String()
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			result.Status = StatusUnhealthy
		}
		return result
	})
}
