// Package shutdown coordinates graceful termination of the controller
// process: draining in-flight executor work, marking this node offline in
// the registry, and flushing the queue's best-effort persistence file
// before the process exits.
package shutdown

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"
)

// Step is one named unit of cleanup work, run in order during shutdown.
// A step's own error is logged but never aborts the remaining steps —
// a failed registry write does not prevent the later steps from running.
// Steps run one after another, so a step that blocks delays the rest.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Listen blocks until SIGINT or SIGTERM, then runs steps in order under a
// shared timeout budget, logging each step's outcome.
func Listen(timeout time.Duration, steps ...Step) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Println("shutdown: signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, step := range steps {
		if err := step.Run(shutdownCtx); err != nil {
			log.Printf("shutdown: step %q failed: %v", step.Name, err)
			continue
		}
		log.Printf("shutdown: step %q complete", step.Name)
	}
	log.Println("shutdown: complete")
}
