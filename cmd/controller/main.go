package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"buildqueue/pkg/api"
	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/config"
	"buildqueue/pkg/cron"
	"buildqueue/pkg/executor"
	"buildqueue/pkg/jobregistry"
	"buildqueue/pkg/leader"
	"buildqueue/pkg/registry"
	"buildqueue/pkg/shutdown"
)

// selfNode is this controller process's own executor identity: the
// in-process executor.Pool runs as if it were one more normal node in the
// registry, so the CORE's node/label logic (choose's S3/S4 affinity and
// offload heuristics) applies uniformly to it too.
type selfNode struct {
	nodeID       string
	isController bool
}

func (n selfNode) ID() string               { return n.nodeID }
func (n selfNode) Mode() buildqueue.NodeMode { return buildqueue.ModeNormal }
func (n selfNode) IsOffline() bool           { return false }
func (n selfNode) IsController() bool        { return n.isController }

type selfExecutor struct {
	id    string
	owner buildqueue.Node
}

func (e selfExecutor) ID() string             { return e.id }
func (e selfExecutor) Owner() buildqueue.Node { return e.owner }

func main() {
	cfg := config.Load()

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		log.Fatalf("controller: failed to connect to MongoDB: %v", err)
	}
	db := client.Database(cfg.DBName)

	nodeRegistry, err := registry.New(cfg.MongoURI, cfg.DBName)
	if err != nil {
		log.Fatalf("controller: failed to start node registry: %v", err)
	}

	self := selfNode{nodeID: cfg.NodeID, isController: cfg.IsController}
	regCtx, regCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := nodeRegistry.Upsert(regCtx, registry.NodeRecord{
		NodeID:       self.nodeID,
		Mode:         "normal",
		IsController: self.isController,
	}); err != nil {
		log.Printf("controller: initial node registration failed: %v", err)
	}
	regCancel()

	env := registry.NewEnvironment(nodeRegistry)
	if seeds, err := config.LoadLabelSeeds(cfg.LabelSeedFile); err != nil {
		log.Printf("controller: failed to load label seeds from %s: %v", cfg.LabelSeedFile, err)
	} else {
		env.SetLabelSeeds(seeds.Labels)
	}

	rc := buildqueue.NewResourceController()
	queue := buildqueue.New(env, rc)
	queue.Load(cfg.QueueSaveFile, func() int { return cfg.DefaultQuiet })
	queue.StartTicker(time.Duration(cfg.MaintainEvery) * time.Second)

	jobs := jobregistry.New()

	pool := executor.NewPool(queue, jobs, selfExecutor{id: cfg.NodeID + "-exec", owner: self}, cfg.Concurrency)
	execCtx, execCancel := context.WithCancel(context.Background())
	pool.Start(execCtx)

	trigger := cron.NewTrigger(queue, env)
	trigger.Load()

	elect := leader.New(client, db, cfg.NodeID, func(isLeader bool) {
		log.Printf("controller: leadership changed, isLeader=%v", isLeader)
	})
	electCtx, electCancel := context.WithCancel(context.Background())
	elect.Start(electCtx)
	trigger.Start(elect.IsLeader)

	mux := http.NewServeMux()
	apiSurface := api.New(queue, env, nodeRegistry.Stats())
	apiSurface.Register(mux)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		log.Printf("controller: listening on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("controller: server failed: %v", err)
		}
	}()

	shutdown.Listen(15*time.Second,
		shutdown.Step{Name: "quiesce", Run: func(ctx context.Context) error {
			env.SetQuiescing(true)
			return nil
		}},
		shutdown.Step{Name: "http-server", Run: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		}},
		shutdown.Step{Name: "executor-pool", Run: func(ctx context.Context) error {
			execCancel()
			pool.Stop()
			return nil
		}},
		shutdown.Step{Name: "cron-trigger", Run: func(ctx context.Context) error {
			trigger.Stop()
			return nil
		}},
		shutdown.Step{Name: "leader-election", Run: func(ctx context.Context) error {
			electCancel()
			elect.Stop()
			return nil
		}},
		shutdown.Step{Name: "queue-save", Run: func(ctx context.Context) error {
			queue.Save(cfg.QueueSaveFile)
			queue.Close()
			return nil
		}},
		shutdown.Step{Name: "node-registry", Run: func(ctx context.Context) error {
			if err := nodeRegistry.MarkOffline(ctx, self.nodeID); err != nil {
				return err
			}
			nodeRegistry.Close()
			return client.Disconnect(ctx)
		}},
	)
}
