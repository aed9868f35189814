// Package jobregistry supplies the one concrete Task implementation the
// controller needs to schedule real work end to end (JobRecord), plus the
// job-type-keyed handler registry that performs each task's actual body
// once the dispatcher hands it to an executor.
package jobregistry

import (
	"time"

	"buildqueue/pkg/buildqueue"
)

// NodeResolver looks up live Label/Node handles by name or ID. A
// JobRecord is a persisted document, not a live object graph, so it
// cannot hold buildqueue.Label/buildqueue.Node references across a
// save/load round trip; it resolves them lazily through this interface
// instead.
type NodeResolver interface {
	ResolveLabel(name string) buildqueue.Label
	ResolveNode(nodeID string) buildqueue.Node
}

// JobRecord is the concrete Task the demo/API layer schedules. It carries
// every field spec.md §6 requires of a Task, plus the JobType/Payload
// pair jobregistry.Execute consumes to actually run the work — the
// supplemented feature from original_source's AbstractProject/
// FreeStyleProject split (a full repository needs at least one concrete
// task, not just the CORE's Task interface).
type JobRecord struct {
	ID                string         `bson:"_id,omitempty" json:"id"`
	JobName           string         `bson:"name" json:"name"`
	JobType           string         `bson:"job_type" json:"job_type"`
	Payload           map[string]any `bson:"payload" json:"payload"`
	LabelName         string         `bson:"label_name,omitempty" json:"label_name,omitempty"`
	LastBuiltOnNodeID string         `bson:"last_built_on,omitempty" json:"last_built_on,omitempty"`
	EstimatedMillis   int64          `bson:"estimated_ms" json:"estimated_ms"`
	Blocked           bool           `bson:"blocked" json:"blocked"`
	BlockedReason     string         `bson:"blocked_reason,omitempty" json:"blocked_reason,omitempty"`
	Resources         []string       `bson:"resources,omitempty" json:"resources,omitempty"`
	CronExpr          string         `bson:"cron_expr,omitempty" json:"cron_expr,omitempty"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`

	resolver NodeResolver
}

// WithResolver attaches the live Label/Node lookup this record needs to
// satisfy buildqueue.Task; a record built as a literal or decoded from
// JSON/BSON has no resolver until the owning controller wires it in.
func (j *JobRecord) WithResolver(r NodeResolver) *JobRecord {
	j.resolver = r
	return j
}

func (j *JobRecord) TaskKey() string { return j.ID }

func (j *JobRecord) AssignedLabel() buildqueue.Label {
	if j.LabelName == "" || j.resolver == nil {
		return nil
	}
	return j.resolver.ResolveLabel(j.LabelName)
}

func (j *JobRecord) LastBuiltOn() buildqueue.Node {
	if j.LastBuiltOnNodeID == "" || j.resolver == nil {
		return nil
	}
	return j.resolver.ResolveNode(j.LastBuiltOnNodeID)
}

func (j *JobRecord) IsBuildBlocked() bool { return j.Blocked }
func (j *JobRecord) WhyBlocked() string   { return j.BlockedReason }

func (j *JobRecord) ResourceList() []buildqueue.Resource {
	out := make([]buildqueue.Resource, len(j.Resources))
	for i, name := range j.Resources {
		out[i] = buildqueue.Resource{Name: name}
	}
	return out
}

// EstimatedDuration returns -1 when unset, per spec.md §6's
// "estimated-duration-ms (−1 = unknown)".
func (j *JobRecord) EstimatedDuration() time.Duration {
	if j.EstimatedMillis <= 0 {
		return -1
	}
	return time.Duration(j.EstimatedMillis) * time.Millisecond
}

func (j *JobRecord) Name() string { return j.JobName }

func (j *JobRecord) FullDisplayName() string {
	if j.JobType == "" {
		return j.JobName
	}
	return j.JobType + "/" + j.JobName
}

func (j *JobRecord) DisplayName() string { return j.FullDisplayName() }
