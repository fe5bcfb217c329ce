package database

import (
	"context"
	"database/sql"
	"fmt"
)

// HealthStatus is the result of a shallow database health probe.
type HealthStatus struct {
	OK       bool   `json:"ok"`
	OpenConn int    `json:"open_connections"`
	Error    string `json:"error,omitempty"`
}

// Health pings db and reports pool statistics, mirroring the health
// endpoint contract the rest of the ecosystem exposes.
func Health(ctx context.Context, db *sql.DB) (HealthStatus, error) {
	if err := db.PingContext(ctx); err != nil {
		return HealthStatus{OK: false, Error: err.Error()}, fmt.Errorf("database: health ping: %w", err)
	}
	stats := db.Stats()
	return HealthStatus{OK: true, OpenConn: stats.OpenConnections}, nil
}
