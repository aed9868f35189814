package jobregistry

import (
	"context"
	"fmt"
	"log"
)

// JobHandler performs the actual work behind one job type, the
// create-executable capability spec.md §6 lists as a Task responsibility
// but leaves external to the CORE.
type JobHandler interface {
	Execute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
	Type() string
}

// Registry maps a JobRecord's JobType to the handler that runs it.
type Registry struct {
	handlers map[string]JobHandler
}

// New returns a registry pre-populated with the built-in handlers.
func New() *Registry {
	r := &Registry{handlers: make(map[string]JobHandler)}
	r.Register("send_email", &EmailHandler{})
	log.Println("jobregistry: initialized with default handlers")
	return r
}

func (r *Registry) Register(jobType string, handler JobHandler) {
	r.handlers[jobType] = handler
	log.Printf("jobregistry: registered handler for job type: %s", jobType)
}

// Execute runs the task's job body and returns its result payload.
func (r *Registry) Execute(ctx context.Context, task *JobRecord) (map[string]interface{}, error) {
	handler, exists := r.handlers[task.JobType]
	if !exists {
		return nil, fmt.Errorf("unknown job type: %s", task.JobType)
	}
	log.Printf("jobregistry: executing %s (type %s)", task.FullDisplayName(), task.JobType)
	return handler.Execute(ctx, task.Payload)
}

func (r *Registry) RegisteredTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for jobType := range r.handlers {
		types = append(types, jobType)
	}
	return types
}
