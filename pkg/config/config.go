// Package config centralizes the flag/env/.env loading every teacher
// cmd/*/main.go duplicated locally as its own getEnv helper; here it is
// factored into one place since cmd/controller is now the single binary.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every setting cmd/controller needs to wire up the
// scheduler, its registry, and its HTTP surface.
type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	NodeID          string
	Concurrency     int
	MaintainEvery   int // seconds
	DefaultQuiet    int // seconds, the quiet period given to every entry reloaded from QueueSaveFile
	QueueSaveFile   string
	IsController    bool
	LabelSeedFile   string
}

// Load reads .env (best-effort, matching every teacher main's
// `_ = godotenv.Load(".env")`), then flags, with flags overriding env,
// and env overriding the built-in defaults.
func Load() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	flag.StringVar(&cfg.Port, "port", getEnv("PORT", "8080"), "HTTP port for the producer API")
	flag.StringVar(&cfg.MongoURI, "mongo-uri", getEnv("MONGO_URI", "mongodb://localhost:27017"), "MongoDB URI")
	flag.StringVar(&cfg.DBName, "db", getEnv("MONGO_DB", "buildqueue"), "MongoDB database name")
	flag.StringVar(&cfg.NodeID, "node-id", getEnv("NODE_ID", "controller-1"), "identity of this controller instance")
	flag.IntVar(&cfg.Concurrency, "concurrency", getEnvInt("EXECUTOR_CONCURRENCY", 5), "in-process executor concurrency")
	flag.IntVar(&cfg.MaintainEvery, "maintain-interval", getEnvInt("MAINTAIN_INTERVAL_SEC", 5), "maintenance tick interval in seconds")
	flag.IntVar(&cfg.DefaultQuiet, "default-quiet-period", getEnvInt("DEFAULT_QUIET_PERIOD_SEC", 5), "default quiet period in seconds")
	flag.StringVar(&cfg.QueueSaveFile, "queue-file", getEnv("QUEUE_SAVE_FILE", "queue.txt"), "path to the best-effort queue persistence file")
	flag.BoolVar(&cfg.IsController, "is-controller-node", getEnvBool("IS_CONTROLLER_NODE", false), "reserve this node for coordination rather than build execution")
	flag.StringVar(&cfg.LabelSeedFile, "label-seeds", getEnv("LABEL_SEED_FILE", "labels.yaml"), "path to a YAML file declaring static label->node membership")
	flag.Parse()

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
