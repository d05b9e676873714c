package repository

import (
	"context"
	"fmt"
	"sync"

	"cpenv/internal/common/db"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS docker_containers (
		name VARCHAR(191) NOT NULL,
		container_id VARCHAR(64) NULL,
		status VARCHAR(32) NOT NULL,
		created_at TIMESTAMP NULL,
		started_at TIMESTAMP NULL,
		stopped_at TIMESTAMP NULL,
		removed_at TIMESTAMP NULL,
		PRIMARY KEY (name)
	)`,
	`CREATE TABLE IF NOT EXISTS docker_container_events (
		id BIGINT NOT NULL AUTO_INCREMENT,
		container_name VARCHAR(191) NOT NULL,
		event VARCHAR(64) NOT NULL,
		details JSON NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_events_container (container_name)
	)`,
	`CREATE TABLE IF NOT EXISTS docker_images (
		name VARCHAR(191) NOT NULL,
		tag VARCHAR(64) NOT NULL DEFAULT 'latest',
		image_id VARCHAR(64) NULL,
		dockerfile_hash VARCHAR(12) NULL,
		build_command TEXT NULL,
		build_status VARCHAR(32) NOT NULL,
		build_time_ms BIGINT NULL,
		size_bytes BIGINT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (name, tag)
	)`,
}

var (
	migrateMu      sync.Mutex
	migrateApplied = map[db.Database]bool{}
)

// EnsureSchema applies the tracking schema once per database instance.
// Concurrent callers serialize on a process-wide lock.
func EnsureSchema(ctx context.Context, database db.Database) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()
	if migrateApplied[database] {
		return nil
	}
	for _, stmt := range migrations {
		if _, err := database.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration failed: %w", err)
		}
	}
	migrateApplied[database] = true
	return nil
}
