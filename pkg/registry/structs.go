// Package registry is the durable inventory of nodes and executors the
// dispatcher's selection policy queries: mode, labels, offline state, and
// heartbeat freshness. It is external to the queue's CORE (the queue only
// ever sees the narrow buildqueue.Node/buildqueue.Executor capability
// sets); this package is what backs those interfaces in a real deployment.
package registry

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	// HeartbeatInterval is how often the stale-recovery loop scans for
	// silent nodes.
	HeartbeatInterval = 10 * time.Second
	// HeartbeatTimeout is how long a node may go silent before it is
	// marked offline by recoverStaleNodes.
	HeartbeatTimeout = 30 * time.Second
)

// Registry tracks node records in MongoDB and keeps a stale-recovery loop
// running in the background, mirroring the coordinator's own
// heartbeat/lease bookkeeping.
type Registry struct {
	client *mongo.Client
	db     *mongo.Database
	stats  *Stats

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NodeRecord is the durable record of one node, persisted the way the
// teacher persists WorkerAssignment documents.
type NodeRecord struct {
	NodeID        string    `bson:"node_id" json:"node_id"`
	Mode          string    `bson:"mode" json:"mode"` // "normal" | "exclusive"
	IsController  bool      `bson:"is_controller" json:"is_controller"`
	Labels        []string  `bson:"labels" json:"labels"`
	LastHeartbeat time.Time `bson:"last_heartbeat" json:"last_heartbeat"`
	Offline       bool      `bson:"offline" json:"offline"`
}

// ExecutorRecord is the durable record of one executor slot on a node.
type ExecutorRecord struct {
	ExecutorID string `bson:"executor_id" json:"executor_id"`
	NodeID     string `bson:"node_id" json:"node_id"`
}

// Stats mirrors the coordinator's mutex-guarded counters pattern.
type Stats struct {
	mu                  sync.RWMutex
	RegisteredNodes     int
	StaleNodesRecovered int64
	LastHeartbeatAt     time.Time
}

func (s *Stats) recordHeartbeat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastHeartbeatAt = time.Now()
}

func (s *Stats) recordStaleRecovered(count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StaleNodesRecovered += count
}

// GetStats returns a JSON-friendly snapshot for the API's stats endpoint.
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"registered_nodes":      s.RegisteredNodes,
		"stale_nodes_recovered": s.StaleNodesRecovered,
		"last_heartbeat_at":     s.LastHeartbeatAt,
	}
}
