package service

import (
	"context"
	"sync"
)

// Check probes one dependency. A nil Check reports the dependency as down.
type Check func(ctx context.Context) error

// Health probes the three runtime dependencies of the pipeline.
type Health struct {
	Database Check
	LLM      Check
	RAG      Check
}

// HealthReport is the outcome of Health.Report.
type HealthReport struct {
	Database bool              `json:"database"`
	LLM      bool              `json:"llm"`
	RAG      bool              `json:"rag"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// Healthy reports whether every dependency is up.
func (r *HealthReport) Healthy() bool {
	return r.Database && r.LLM && r.RAG
}

// Report runs the checks concurrently and collects their results.
func (h Health) Report(ctx context.Context) *HealthReport {
	checks := []struct {
		name  string
		check Check
		ok    *bool
	}{
		{"database", h.Database, new(bool)},
		{"llm", h.LLM, new(bool)},
		{"rag", h.RAG, new(bool)},
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make(map[string]string)
	)
	for _, c := range checks {
		if c.check == nil {
			errs[c.name] = "not configured"
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.check(ctx); err != nil {
				mu.Lock()
				errs[c.name] = err.Error()
				mu.Unlock()
				return
			}
			*c.ok = true
		}()
	}
	wg.Wait()

	report := &HealthReport{
		Database: *checks[0].ok,
		LLM:      *checks[1].ok,
		RAG:      *checks[2].ok,
	}
	if len(errs) > 0 {
		report.Errors = errs
	}
	return report
}
