package registry

import (
	"context"
	"sync"
	"time"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

// Environment adapts a mongo-backed Registry plus a local task-instance
// store into buildqueue.Environment and jobregistry.NodeResolver, the
// "environment handle passed into queue construction" Design Notes §9
// calls for in place of a global singleton controller.
type Environment struct {
	registry *Registry

	quiescing sync.RWMutex
	quiesced  bool

	instancesMu sync.RWMutex
	instances   map[string]*jobregistry.JobRecord // keyed by FullDisplayName, for persistence resolution
	templates   map[string]*jobregistry.JobRecord // keyed by TaskKey, cron templates

	seedsMu sync.RWMutex
	seeds   map[string][]string // declarative label -> node ID overrides from config.LabelSeeds
}

func NewEnvironment(reg *Registry) *Environment {
	return &Environment{
		registry:  reg,
		instances: make(map[string]*jobregistry.JobRecord),
		templates: make(map[string]*jobregistry.JobRecord),
		seeds:     make(map[string][]string),
	}
}

// SetLabelSeeds installs the declarative label->node-ID overrides loaded
// from config.LabelSeeds, so a node counts as a label member even before
// it has self-reported that label through the registry.
func (e *Environment) SetLabelSeeds(seeds map[string][]string) {
	e.seedsMu.Lock()
	defer e.seedsMu.Unlock()
	e.seeds = seeds
}

// Remember records task under its display name so a later queue.Load can
// resolve it back to a live *jobregistry.JobRecord after a restart.
func (e *Environment) Remember(task *jobregistry.JobRecord) {
	e.instancesMu.Lock()
	defer e.instancesMu.Unlock()
	e.instances[task.FullDisplayName()] = task
	if task.CronExpr != "" {
		e.templates[task.TaskKey()] = task
	}
}

func (e *Environment) IsQuietingDown() bool {
	e.quiescing.RLock()
	defer e.quiescing.RUnlock()
	return e.quiesced
}

func (e *Environment) SetQuiescing(v bool) {
	e.quiescing.Lock()
	defer e.quiescing.Unlock()
	e.quiesced = v
}

func (e *Environment) AgentCount() int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	count, err := e.registry.AgentCount(ctx)
	if err != nil {
		return 0
	}
	return count
}

func (e *Environment) ResolveTask(name string) buildqueue.Task {
	e.instancesMu.RLock()
	defer e.instancesMu.RUnlock()
	task, ok := e.instances[name]
	if !ok {
		return nil
	}
	return task.WithResolver(e)
}

func (e *Environment) ResolveLabel(name string) buildqueue.Label {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	nodes, err := e.registry.All(ctx)
	if err != nil {
		// An empty label keeps the task's label constraint: no node matches.
		return NewLabel(name, nil)
	}
	return e.seedOnlyLabel(name, nodes)
}

// seedOnlyLabel merges the declarative label seeds into nodes without
// touching the registry, so it can be exercised against a hand-built
// node set independent of Mongo.
func (e *Environment) seedOnlyLabel(name string, nodes []NodeRecord) *Label {
	e.seedsMu.RLock()
	seeded := e.seeds[name]
	e.seedsMu.RUnlock()

	if len(seeded) == 0 {
		return NewLabel(name, nodes)
	}

	seededSet := make(map[string]bool, len(seeded))
	for _, id := range seeded {
		seededSet[id] = true
	}
	augmented := make([]NodeRecord, 0, len(nodes))
	for _, rec := range nodes {
		if seededSet[rec.NodeID] {
			hasLabel := false
			for _, l := range rec.Labels {
				if l == name {
					hasLabel = true
					break
				}
			}
			if !hasLabel {
				rec.Labels = append(append([]string{}, rec.Labels...), name)
			}
		}
		augmented = append(augmented, rec)
	}
	return NewLabel(name, augmented)
}

func (e *Environment) ResolveNode(nodeID string) buildqueue.Node {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	rec, err := e.registry.Get(ctx, nodeID)
	if err != nil || rec == nil {
		return nil
	}
	return NewNode(*rec)
}

// CronTemplates satisfies cron.TemplateSource.
func (e *Environment) CronTemplates() []*jobregistry.JobRecord {
	e.instancesMu.RLock()
	defer e.instancesMu.RUnlock()
	out := make([]*jobregistry.JobRecord, 0, len(e.templates))
	for _, t := range e.templates {
		out = append(out, t)
	}
	return out
}
