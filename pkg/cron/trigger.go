package cron

import (
	"log"
	"sync"
	"time"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

// TemplateSource supplies the currently-configured cron job templates,
// mirroring the teacher's CronJobLoader that pulls type=cron/status=active
// documents from Mongo.
type TemplateSource interface {
	CronTemplates() []*jobregistry.JobRecord
}

// Trigger walks cron templates once a minute and enqueues a fresh
// instance onto the queue whenever one is due, mirroring the teacher's
// CronTicker/checkCronJobs split — but it calls Queue.Add directly
// in-process instead of writing a "pending" document for pkg/watcher to
// notice, since the queue here is the in-process monitor itself.
type Trigger struct {
	queue  *buildqueue.Queue
	source TemplateSource

	mu        sync.Mutex
	schedules map[string]*Schedule
	nextRun   map[string]time.Time

	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewTrigger(queue *buildqueue.Queue, source TemplateSource) *Trigger {
	return &Trigger{
		queue:     queue,
		source:    source,
		schedules: make(map[string]*Schedule),
		nextRun:   make(map[string]time.Time),
		stopChan:  make(chan struct{}),
	}
}

// Load (re)parses every template's cron expression.
func (t *Trigger) Load() {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := 0
	for _, tmpl := range t.source.CronTemplates() {
		if tmpl.CronExpr == "" {
			log.Printf("cron: template %s has empty expression", tmpl.TaskKey())
			continue
		}
		schedule, err := Parse(tmpl.CronExpr)
		if err != nil {
			log.Printf("cron: failed to parse template %s: %v", tmpl.TaskKey(), err)
			continue
		}
		t.schedules[tmpl.TaskKey()] = schedule
		count++
	}
	log.Printf("cron: loaded %d templates", count)
}

// Start begins the minute-tick loop. isLeader is consulted on every tick
// so only the elected leader creates instances; on followers the loop
// ticks without firing anything.
func (t *Trigger) Start(isLeader func() bool) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if isLeader() {
					t.fireDue()
				}
			case <-t.stopChan:
				return
			}
		}
	}()
}

func (t *Trigger) fireDue() {
	now := time.Now().Truncate(time.Minute)

	t.mu.Lock()
	var due []*jobregistry.JobRecord
	for _, tmpl := range t.source.CronTemplates() {
		schedule, ok := t.schedules[tmpl.TaskKey()]
		if !ok {
			continue
		}
		if last, seen := t.nextRun[tmpl.TaskKey()]; seen && now.Before(last) {
			continue
		}
		t.nextRun[tmpl.TaskKey()] = schedule.Next(now)
		due = append(due, tmpl)
	}
	t.mu.Unlock()

	for _, tmpl := range due {
		instance := *tmpl
		instance.ID = tmpl.ID + "-" + now.Format("200601021504")
		t.queue.Add(&instance, 0)
		log.Printf("cron: enqueued %s from template %s", instance.TaskKey(), tmpl.TaskKey())
	}
}

// Stop ends the tick loop.
func (t *Trigger) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}
