package jobregistry

import (
	"testing"
	"time"
)

func TestJobRecord_EstimatedDuration_UnsetIsNegativeOne(t *testing.T) {
	j := &JobRecord{}
	if got := j.EstimatedDuration(); got != -1 {
		t.Fatalf("EstimatedDuration() = %v, want -1", got)
	}
}

func TestJobRecord_EstimatedDuration_ConvertsMillis(t *testing.T) {
	j := &JobRecord{EstimatedMillis: 1500}
	if got := j.EstimatedDuration(); got != 1500*time.Millisecond {
		t.Fatalf("EstimatedDuration() = %v, want 1.5s", got)
	}
}

func TestJobRecord_FullDisplayName(t *testing.T) {
	j := &JobRecord{JobName: "deploy", JobType: "release"}
	if got := j.FullDisplayName(); got != "release/deploy" {
		t.Fatalf("FullDisplayName() = %q, want %q", got, "release/deploy")
	}
}

func TestJobRecord_FullDisplayName_NoType(t *testing.T) {
	j := &JobRecord{JobName: "deploy"}
	if got := j.FullDisplayName(); got != "deploy" {
		t.Fatalf("FullDisplayName() = %q, want %q", got, "deploy")
	}
}

func TestJobRecord_AssignedLabel_NilWithoutResolver(t *testing.T) {
	j := &JobRecord{LabelName: "gpu-nodes"}
	if j.AssignedLabel() != nil {
		t.Fatal("expected nil label without a resolver")
	}
}

func TestJobRecord_ResourceList(t *testing.T) {
	j := &JobRecord{Resources: []string{"db-lock", "deploy-slot"}}
	res := j.ResourceList()
	if len(res) != 2 || res[0].Name != "db-lock" || res[1].Name != "deploy-slot" {
		t.Fatalf("ResourceList() = %v", res)
	}
}

func TestJobRecord_WhyBlocked(t *testing.T) {
	j := &JobRecord{Blocked: true, BlockedReason: "waiting on upstream"}
	if !j.IsBuildBlocked() {
		t.Fatal("expected IsBuildBlocked to be true")
	}
	if got := j.WhyBlocked(); got != "waiting on upstream" {
		t.Fatalf("WhyBlocked() = %q", got)
	}
}
