// Package api is the HTTP producer surface: it decodes job requests into
// jobregistry.JobRecord tasks and calls straight into the in-process
// buildqueue.Queue, following the JSON-decode/status-write handler style
// of the teacher's gateway and scheduler HTTP handlers.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

// API wires the queue and its resolver into a mux of HTTP handlers.
type API struct {
	queue    *buildqueue.Queue
	resolver jobregistry.NodeResolver
	stats    StatsProvider
}

// StatsProvider supplies registry counters for /queue/stats; nil is
// tolerated (stats endpoint reports queue-only figures).
type StatsProvider interface {
	GetStats() map[string]interface{}
}

func New(queue *buildqueue.Queue, resolver jobregistry.NodeResolver, stats StatsProvider) *API {
	return &API{queue: queue, resolver: resolver, stats: stats}
}

// Register wires every route onto mux, mirroring the teacher's
// mux.HandleFunc registration style in cmd/scheduler/main.go.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", a.HandleHealth)
	mux.HandleFunc("/queue/add", a.HandleAdd)
	mux.HandleFunc("/queue/cancel", a.HandleCancel)
	mux.HandleFunc("/queue/items", a.HandleItems)
	mux.HandleFunc("/queue/stats", a.HandleStats)
}

func (a *API) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// addRequest is the wire shape POSTed to /queue/add.
type addRequest struct {
	Name              string         `json:"name"`
	JobType           string         `json:"job_type"`
	Payload           map[string]any `json:"payload"`
	LabelName         string         `json:"label_name,omitempty"`
	LastBuiltOnNodeID string         `json:"last_built_on,omitempty"`
	EstimatedMillis   int64          `json:"estimated_ms,omitempty"`
	Resources         []string       `json:"resources,omitempty"`
	CronExpr          string         `json:"cron_expr,omitempty"`
	QuietPeriodSec    int            `json:"quiet_period_sec"`
}

func (a *API) HandleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.JobType == "" {
		http.Error(w, "name and job_type are required", http.StatusBadRequest)
		return
	}

	task := (&jobregistry.JobRecord{
		ID:                uuid.NewString(),
		JobName:           req.Name,
		JobType:           req.JobType,
		Payload:           req.Payload,
		LabelName:         req.LabelName,
		LastBuiltOnNodeID: req.LastBuiltOnNodeID,
		EstimatedMillis:   req.EstimatedMillis,
		Resources:         req.Resources,
		CronExpr:          req.CronExpr,
		CreatedAt:         time.Now(),
	}).WithResolver(a.resolver)

	if r, ok := a.resolver.(interface {
		Remember(*jobregistry.JobRecord)
	}); ok {
		r.Remember(task)
	}

	changed := a.queue.Add(task, time.Duration(req.QuietPeriodSec)*time.Second)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"task_id": task.ID,
		"queued":  changed,
	})
	log.Printf("api: add %s queued=%v", task.FullDisplayName(), changed)
}

func (a *API) HandleCancel(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if taskID == "" {
		http.Error(w, "task_id required", http.StatusBadRequest)
		return
	}

	task := (&jobregistry.JobRecord{ID: taskID}).WithResolver(a.resolver)
	cancelled := a.queue.Cancel(task)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"cancelled": cancelled})
}

func (a *API) HandleItems(w http.ResponseWriter, _ *http.Request) {
	items := a.queue.GetItems()

	type itemView struct {
		TaskID string `json:"task_id"`
		Name   string `json:"name"`
		Stage  string `json:"stage"`
		DueAt  string `json:"due_at,omitempty"`
	}
	out := make([]itemView, 0, len(items))
	for _, it := range items {
		v := itemView{TaskID: it.Task.TaskKey(), Name: it.Task.FullDisplayName(), Stage: it.Stage.String()}
		if it.Stage == buildqueue.StageWaiting {
			v.DueAt = it.DueAt.Format(time.RFC3339)
		}
		out = append(out, v)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (a *API) HandleStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]interface{}{
		"queue_size": len(a.queue.GetItems()),
		"is_empty":   a.queue.IsEmpty(),
	}
	if a.stats != nil {
		for k, v := range a.stats.GetStats() {
			stats[k] = v
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
