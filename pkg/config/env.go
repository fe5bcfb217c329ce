package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads a .env file at path into the process environment,
// logging a warning (never failing) when the file is absent, mirroring
// how the rest of the ecosystem treats .env loading as best-effort.
func LoadDotEnv(path string) {
	if err := godotenv.Load(path); err != nil {
		log.Printf("config: could not load %s: %v (continuing with existing environment)", path, err)
		return
	}
	log.Printf("config: loaded environment from %s", path)
}

// StorageURL returns the configured durable-storage URL (DERC_STORAGE_URL),
// or the empty string when unset. pkg/database does not read it; it takes
// its connection settings from its own DERC_DB_* variables.
func StorageURL() string {
	return getEnvOrDefault("DERC_STORAGE_URL", "")
}

// ArtifactStoreDir returns the directory the content-addressed artifact
// blob store is rooted at.
func ArtifactStoreDir() string {
	return getEnvOrDefault("DERC_ARTIFACT_DIR", "./data/artifacts")
}

// JournalPath returns the path the SEM write journal is appended to.
func JournalPath() string {
	return getEnvOrDefault("DERC_JOURNAL_PATH", "./data/sem_write_journal.jsonl")
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
