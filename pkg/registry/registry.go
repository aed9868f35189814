package registry

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// New connects to mongoURI and returns a Registry backed by database dbName,
// starting the stale-recovery loop in the background.
func New(mongoURI, dbName string) (*Registry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	r := &Registry{
		client:   client,
		db:       client.Database(dbName),
		stats:    &Stats{},
		stopChan: make(chan struct{}),
	}

	if _, err := r.db.Collection("nodes").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"node_id": 1},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return nil, fmt.Errorf("failed to create node_id index: %w", err)
	}

	r.startStaleRecovery()
	return r, nil
}

// Upsert writes or refreshes a node's record.
func (r *Registry) Upsert(ctx context.Context, rec NodeRecord) error {
	rec.LastHeartbeat = time.Now()
	collection := r.db.Collection("nodes")
	opts := options.Update().SetUpsert(true)
	_, err := collection.UpdateOne(ctx,
		bson.M{"node_id": rec.NodeID},
		bson.M{"$set": rec},
		opts,
	)
	if err == nil {
		r.stats.recordHeartbeat()
	}
	return err
}

// Heartbeat refreshes a known node's last-seen time and clears its
// offline flag.
func (r *Registry) Heartbeat(ctx context.Context, nodeID string) error {
	collection := r.db.Collection("nodes")
	_, err := collection.UpdateOne(ctx,
		bson.M{"node_id": nodeID},
		bson.M{"$set": bson.M{
			"last_heartbeat": time.Now(),
			"offline":        false,
		}},
	)
	if err == nil {
		r.stats.recordHeartbeat()
	}
	return err
}

// MarkOffline flags a node offline immediately, e.g. on graceful shutdown.
func (r *Registry) MarkOffline(ctx context.Context, nodeID string) error {
	collection := r.db.Collection("nodes")
	_, err := collection.UpdateOne(ctx,
		bson.M{"node_id": nodeID},
		bson.M{"$set": bson.M{"offline": true}},
	)
	return err
}

// Get fetches a node's record by ID.
func (r *Registry) Get(ctx context.Context, nodeID string) (*NodeRecord, error) {
	collection := r.db.Collection("nodes")
	var rec NodeRecord
	if err := collection.FindOne(ctx, bson.M{"node_id": nodeID}).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// All returns every registered node.
func (r *Registry) All(ctx context.Context) ([]NodeRecord, error) {
	collection := r.db.Collection("nodes")
	cur, err := collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []NodeRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AgentCount returns the number of registered non-controller nodes, the
// figure buildqueue.Environment.AgentCount needs for the "large
// deployment" heuristic.
func (r *Registry) AgentCount(ctx context.Context) (int, error) {
	collection := r.db.Collection("nodes")
	count, err := collection.CountDocuments(ctx, bson.M{"is_controller": false})
	return int(count), err
}

// Stats exposes the registry's counters for the API's /queue/stats route.
func (r *Registry) Stats() *Stats { return r.stats }

func (r *Registry) startStaleRecovery() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(HeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.recoverStaleNodes()
			case <-r.stopChan:
				return
			}
		}
	}()
}

func (r *Registry) recoverStaleNodes() {
	ctx := context.Background()
	collection := r.db.Collection("nodes")

	staleThreshold := time.Now().Add(-HeartbeatTimeout)
	filter := bson.M{
		"offline":        false,
		"last_heartbeat": bson.M{"$lt": staleThreshold},
	}
	result, err := collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"offline": true}})
	if err != nil || result.ModifiedCount == 0 {
		return
	}
	r.stats.recordStaleRecovered(result.ModifiedCount)
}

// Close stops the stale-recovery loop and disconnects from MongoDB.
func (r *Registry) Close() {
	close(r.stopChan)
	r.wg.Wait()
	r.client.Disconnect(context.Background())
}
