package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cpenv/internal/common/db"
)

// MySQLContainerRepository persists container lifecycle records in MySQL.
type MySQLContainerRepository struct {
	dbProvider db.Provider
}

// NewContainerRepository creates a container repository over a db provider.
func NewContainerRepository(provider db.Provider) *MySQLContainerRepository {
	return &MySQLContainerRepository{dbProvider: provider}
}

// validTimestampFields guards against arbitrary column injection through the
// timestamp field argument.
var validTimestampFields = map[string]bool{
	"created_at": true,
	"started_at": true,
	"stopped_at": true,
	"removed_at": true,
}

func (r *MySQLContainerRepository) UpdateContainerStatus(ctx context.Context, name, status, timestampField string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}

	query := "INSERT INTO docker_containers (name, status) VALUES (?, ?) " +
		"ON DUPLICATE KEY UPDATE status = VALUES(status)"
	if timestampField != "" {
		if !validTimestampFields[timestampField] {
			return fmt.Errorf("unknown timestamp field %q", timestampField)
		}
		query = fmt.Sprintf(
			"INSERT INTO docker_containers (name, status, %s) VALUES (?, ?, NOW()) "+
				"ON DUPLICATE KEY UPDATE status = VALUES(status), %s = NOW()",
			timestampField, timestampField)
	}
	if _, err := querier.Exec(ctx, query, name, status); err != nil {
		return fmt.Errorf("update container status failed: %w", err)
	}
	return nil
}

func (r *MySQLContainerRepository) AddLifecycleEvent(ctx context.Context, name, event string, details map[string]interface{}) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}

	detailsJSON := sql.NullString{}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal event details failed: %w", err)
		}
		detailsJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := "INSERT INTO docker_container_events (container_name, event, details) VALUES (?, ?, ?)"
	if _, err := querier.Exec(ctx, query, name, event, detailsJSON); err != nil {
		return fmt.Errorf("add lifecycle event failed: %w", err)
	}
	return nil
}

func (r *MySQLContainerRepository) UpdateContainerID(ctx context.Context, name, containerID string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	query := "UPDATE docker_containers SET container_id = ? WHERE name = ?"
	if _, err := querier.Exec(ctx, query, containerID, name); err != nil {
		return fmt.Errorf("update container id failed: %w", err)
	}
	return nil
}

func (r *MySQLContainerRepository) MarkContainerRemoved(ctx context.Context, name string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	query := "UPDATE docker_containers SET status = 'removed', removed_at = NOW() WHERE name = ?"
	if _, err := querier.Exec(ctx, query, name); err != nil {
		return fmt.Errorf("mark container removed failed: %w", err)
	}
	return nil
}

// MySQLImageRepository persists image build records in MySQL.
type MySQLImageRepository struct {
	dbProvider db.Provider
}

// NewImageRepository creates an image repository over a db provider.
func NewImageRepository(provider db.Provider) *MySQLImageRepository {
	return &MySQLImageRepository{dbProvider: provider}
}

func (r *MySQLImageRepository) CreateOrUpdateImage(ctx context.Context, name, tag, dockerfileHash, buildCommand, buildStatus string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	if tag == "" {
		tag = "latest"
	}
	query := "INSERT INTO docker_images (name, tag, dockerfile_hash, build_command, build_status) " +
		"VALUES (?, ?, ?, ?, ?) " +
		"ON DUPLICATE KEY UPDATE dockerfile_hash = VALUES(dockerfile_hash), " +
		"build_command = VALUES(build_command), build_status = VALUES(build_status)"
	if _, err := querier.Exec(ctx, query, name, tag, dockerfileHash, buildCommand, buildStatus); err != nil {
		return fmt.Errorf("create or update image failed: %w", err)
	}
	return nil
}

func (r *MySQLImageRepository) UpdateImageBuildResult(ctx context.Context, name, tag, imageID, buildStatus string, buildTimeMs int64, sizeBytes *int64) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	if tag == "" {
		tag = "latest"
	}

	id := sql.NullString{}
	if imageID != "" {
		id = sql.NullString{String: imageID, Valid: true}
	}
	size := sql.NullInt64{}
	if sizeBytes != nil {
		size = sql.NullInt64{Int64: *sizeBytes, Valid: true}
	}

	query := "UPDATE docker_images SET image_id = ?, build_status = ?, build_time_ms = ?, size_bytes = ? " +
		"WHERE name = ? AND tag = ?"
	if _, err := querier.Exec(ctx, query, id, buildStatus, buildTimeMs, size, name, tag); err != nil {
		return fmt.Errorf("update image build result failed: %w", err)
	}
	return nil
}

func (r *MySQLImageRepository) DeleteImage(ctx context.Context, name, tag string) error {
	querier, err := db.GetProviderQuerier(r.dbProvider, nil)
	if err != nil {
		return err
	}
	if tag == "" {
		tag = "latest"
	}
	query := "DELETE FROM docker_images WHERE name = ? AND tag = ?"
	if _, err := querier.Exec(ctx, query, name, tag); err != nil {
		return fmt.Errorf("delete image failed: %w", err)
	}
	return nil
}
