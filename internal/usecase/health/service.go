// Package health aggregates component probes for the readiness endpoint:
// document store, embedding provider and the in-process lexical index.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. Retrieval may still serve
	// single-channel results.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	lexical   LexicalCounter
}

// New creates a Service. embedding and lexical can be nil.
func New(store StorePinger, embedding EmbeddingChecker, lexical LexicalCounter) *Service {
	return &Service{store: store, embedding: embedding, lexical: lexical}
}

// Check runs health checks against all components. An empty lexical index is
// reported as an error because the corpus is loaded before serving starts.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	if s.lexical != nil {
		if s.lexical.Len() == 0 {
			checks["lexical_index"] = CheckError
		} else {
			checks["lexical_index"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
