package cron

import (
	"context"
	"fmt"
	"strings"
)

// Job is one unit of periodic work. Name doubles as the distributed lock key
// and the metrics label, so it must be stable and unique.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Registry struct {
	jobs  []Job
	index map[string]int
}

// NewRegistry preloads jobs in order, skipping nils and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{index: make(map[string]int, len(jobs))}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job %T has no name", job)
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.index[name] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy in registration order.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.jobs...)
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.jobs))
	for i, job := range r.jobs {
		names[i] = job.Name()
	}
	return names
}
