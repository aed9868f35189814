package cron

import (
	"testing"
	"time"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

type fakeEnv struct{}

func (fakeEnv) IsQuietingDown() bool                { return false }
func (fakeEnv) AgentCount() int                     { return 1 }
func (fakeEnv) ResolveTask(string) buildqueue.Task  { return nil }

type fakeSource struct {
	templates []*jobregistry.JobRecord
}

func (s fakeSource) CronTemplates() []*jobregistry.JobRecord { return s.templates }

func newTestQueue() *buildqueue.Queue {
	return buildqueue.New(fakeEnv{}, buildqueue.NewResourceController())
}

func TestTrigger_LoadParsesEveryTemplate(t *testing.T) {
	source := fakeSource{templates: []*jobregistry.JobRecord{
		{ID: "nightly-build", CronExpr: "0 2"},
		{ID: "bad-expr", CronExpr: "not a cron"},
	}}
	trig := NewTrigger(newTestQueue(), source)
	trig.Load()

	if _, ok := trig.schedules["nightly-build"]; !ok {
		t.Fatal("expected nightly-build schedule to be parsed")
	}
	if _, ok := trig.schedules["bad-expr"]; ok {
		t.Fatal("expected bad-expr to be skipped")
	}
}

func TestTrigger_FireDue_EnqueuesUnseenTemplate(t *testing.T) {
	queue := newTestQueue()
	source := fakeSource{templates: []*jobregistry.JobRecord{
		{ID: "nightly-build", JobName: "nightly", JobType: "build", CronExpr: "*/1 *"},
	}}
	trig := NewTrigger(queue, source)
	trig.Load()
	trig.fireDue()

	items := queue.GetItems()
	if len(items) != 1 {
		t.Fatalf("expected 1 enqueued instance, got %d", len(items))
	}
}

func TestTrigger_FireDue_SkipsAlreadyScheduledFutureRun(t *testing.T) {
	queue := newTestQueue()
	source := fakeSource{templates: []*jobregistry.JobRecord{
		{ID: "nightly-build", JobName: "nightly", JobType: "build", CronExpr: "0 3"},
	}}
	trig := NewTrigger(queue, source)
	trig.Load()
	trig.nextRun["nightly-build"] = time.Now().Add(24 * time.Hour)
	trig.fireDue()

	if len(queue.GetItems()) != 0 {
		t.Fatal("expected no instance enqueued while next run is far in the future")
	}
}
