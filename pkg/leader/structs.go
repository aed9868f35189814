// Package leader elects one controller replica at a time among several
// running for availability. The cron trigger consults IsLeader, so only
// the leader creates cron instances; each replica's own queue
// maintenance ticker and executor pool run whether or not it is leader.
package leader

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LeaseDuration    = 30 * time.Second
	RenewInterval    = 10 * time.Second
	LeaderCheckDelay = 5 * time.Second

	leaseDocID = "leader"
)

// Lease mirrors the teacher's LeaderLease document layout exactly.
type Lease struct {
	ID         string    `bson:"_id"`
	LeaderID   string    `bson:"leader_id"`
	AcquiredAt time.Time `bson:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

// OnLeadershipChange is invoked with true when this instance becomes
// leader, and false when it steps down (lease lost, lease expired, or on
// shutdown). It must return quickly; start goroutines from it rather than
// blocking the election loop.
type OnLeadershipChange func(isLeader bool)

// Elector runs a Mongo-lease-based election among controller replicas.
type Elector struct {
	client     *mongo.Client
	db         *mongo.Database
	instanceID string
	onChange   OnLeadershipChange

	mu       sync.RWMutex
	isLeader bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}
