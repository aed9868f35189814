package leader

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// New builds an Elector against an already-connected client/database.
// onChange is called once when leadership is gained and once when it is
// lost; it must not block.
func New(client *mongo.Client, db *mongo.Database, instanceID string, onChange OnLeadershipChange) *Elector {
	return &Elector{
		client:     client,
		db:         db,
		instanceID: instanceID,
		onChange:   onChange,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the election loop in the background.
func (e *Elector) Start(ctx context.Context) {
	e.wg.Add(1)
	go e.loop(ctx)
}

func (e *Elector) loop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(LeaderCheckDelay)
	defer ticker.Stop()

	log.Printf("leader:%s starting election", e.instanceID)
	e.tryAcquireLease(ctx)

	for {
		select {
		case <-ticker.C:
			e.mu.RLock()
			isLeader := e.isLeader
			e.mu.RUnlock()

			if isLeader {
				if !e.renewLease(ctx) {
					log.Printf("leader:%s failed to renew lease, stepping down", e.instanceID)
					e.stepDown()
				}
			} else {
				e.tryAcquireLease(ctx)
			}

		case <-e.stopChan:
			log.Printf("leader:%s election stopped", e.instanceID)
			e.releaseLease(ctx)
			return
		}
	}
}

func (e *Elector) tryAcquireLease(ctx context.Context) bool {
	collection := e.db.Collection("leader_lease")
	now := time.Now()

	filter := bson.M{
		"_id": leaseDocID,
		"$or": []bson.M{
			{"expires_at": bson.M{"$lt": now}},
			{"leader_id": bson.M{"$exists": false}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"leader_id":   e.instanceID,
			"acquired_at": now,
			"expires_at":  now.Add(LeaseDuration),
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{"_id": leaseDocID},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var lease Lease
	err := collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&lease)
	if err != nil {
		if err != mongo.ErrNoDocuments && !mongo.IsDuplicateKeyError(err) {
			log.Printf("leader:%s unexpected error acquiring lease: %v", e.instanceID, err)
		}
		return false
	}
	if lease.LeaderID != e.instanceID {
		return false
	}

	e.mu.Lock()
	wasLeader := e.isLeader
	e.isLeader = true
	e.mu.Unlock()

	if !wasLeader {
		log.Printf("leader:%s became LEADER", e.instanceID)
		if e.onChange != nil {
			e.onChange(true)
		}
	}
	return true
}

func (e *Elector) renewLease(ctx context.Context) bool {
	collection := e.db.Collection("leader_lease")
	now := time.Now()

	result, err := collection.UpdateOne(ctx,
		bson.M{"leader_id": e.instanceID},
		bson.M{"$set": bson.M{"expires_at": now.Add(LeaseDuration), "updated_at": now}},
	)
	if err != nil {
		log.Printf("leader:%s failed to renew lease: %v", e.instanceID, err)
		return false
	}
	if result.MatchedCount == 0 {
		log.Printf("leader:%s lost leadership (lease taken by another instance)", e.instanceID)
		return false
	}
	return true
}

func (e *Elector) releaseLease(ctx context.Context) {
	e.mu.RLock()
	isLeader := e.isLeader
	e.mu.RUnlock()
	if !isLeader {
		return
	}

	collection := e.db.Collection("leader_lease")
	if _, err := collection.DeleteOne(ctx, bson.M{"leader_id": e.instanceID}); err != nil {
		log.Printf("leader:%s failed to release lease: %v", e.instanceID, err)
	} else {
		log.Printf("leader:%s released leadership lease", e.instanceID)
	}
	e.stepDown()
}

func (e *Elector) stepDown() {
	e.mu.Lock()
	e.isLeader = false
	e.mu.Unlock()
	if e.onChange != nil {
		e.onChange(false)
	}
}

// IsLeader reports whether this instance currently holds the lease.
func (e *Elector) IsLeader() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader
}

// Stop ends the election loop and releases the lease if held.
func (e *Elector) Stop() {
	select {
	case <-e.stopChan:
	default:
		close(e.stopChan)
	}
	e.wg.Wait()
}
