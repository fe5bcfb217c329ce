// The derc binary wires the deterministic execution and replay core
// together and runs a small demonstration request against it.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/levelsub-zero/mace/pkg/agent"
	"github.com/levelsub-zero/mace/pkg/artifact"
	"github.com/levelsub-zero/mace/pkg/config"
	"github.com/levelsub-zero/mace/pkg/council"
	"github.com/levelsub-zero/mace/pkg/database"
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/executor"
	"github.com/levelsub-zero/mace/pkg/governance"
	"github.com/levelsub-zero/mace/pkg/reflectivelog"
	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/telemetry"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	text := flag.String("text", "2 + 2", "Percept text to execute against the core")
	intent := flag.String("intent", "", "Optional caller-supplied intent hint")
	flag.Parse()

	config.LoadDotEnv(*configDir + "/.env")

	ctx := context.Background()

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			log.Printf("Error closing database client: %v", err)
		}
	}()
	log.Println("Connected to PostgreSQL and applied migrations")

	policy, err := config.LoadBlocklistPolicy(*configDir + "/blocklist.yaml")
	if err != nil {
		log.Fatalf("Failed to load blocklist policy: %v", err)
	}

	artifacts, err := artifact.NewStore(config.ArtifactStoreDir())
	if err != nil {
		log.Fatalf("Failed to open artifact store: %v", err)
	}

	journal := sem.NewJournal(config.JournalPath())
	defer func() {
		if err := journal.Close(); err != nil {
			log.Printf("Error closing SEM journal: %v", err)
		}
	}()

	devModeEnv := getEnv("DERC_DEV_MODE", "")
	devMode := devModeEnv == "1" || devModeEnv == "true" || devModeEnv == "yes"
	keys, err := config.LoadKeyRegistryFromFile(*configDir+"/keys.yaml", devMode)
	if err != nil {
		log.Fatalf("Failed to load signing key registry: %v", err)
	}
	logWriter := reflectivelog.NewWriter(dbClient.DB(), keys, getEnv("MACE_SIGNING_KEY_ID", "dev"))

	counters, err := telemetry.NewCounters("derc", prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("Failed to register telemetry counters: %v", err)
	}

	det := determinism.NewContext()
	store := sem.NewLiveStore(dbClient.DB())
	semSvc := sem.NewService(store, det, policy, journal).WithTelemetry(counters)
	killSwitch := governance.NewStaticKillSwitch()

	exec := executor.New(det, semSvc, agent.DefaultRegistry(), council.Stub{}, artifacts, killSwitch, logWriter).WithTelemetry(counters)

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	output, entry, err := exec.Execute(reqCtx, *text, *intent, nil, true)
	if err != nil {
		log.Fatalf("Execution failed: %v", err)
	}

	log.Printf("log_id=%s seed=%s output=%q", entry.LogID, entry.RandomSeed, output.Text)
}
