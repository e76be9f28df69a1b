package database

import (
	"database/sql"
	"fmt"

	"github.com/apex/log"
)

// InitSchema creates the necessary database tables if they don't exist
func InitSchema(db *sql.DB) error {
	log.Info("Initializing fieldops database schema...")

	jobsTableSQL := `
	CREATE TABLE IF NOT EXISTS jobs(
		id CHAR(24) NOT NULL,
		worker_phone VARCHAR(32) NOT NULL,
		site_name VARCHAR(255) NOT NULL,
		sector VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
		circle VARCHAR(128),
		company VARCHAR(128),
		sectors_json JSON,
		mac_id VARCHAR(32),
		rsn VARCHAR(64),
		azimuth_deg DOUBLE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX worker_index (worker_phone),
		INDEX site_index (site_name),
		INDEX status_index (status)
	)`

	if _, err := db.Exec(jobsTableSQL); err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	log.Info("Jobs table created/verified")

	photosTableSQL := `
	CREATE TABLE IF NOT EXISTS photos(
		id CHAR(24) NOT NULL,
		job_id CHAR(24) NOT NULL,
		sector VARCHAR(64),
		photo_type VARCHAR(64) NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'PROCESSING',
		reason VARCHAR(255),
		caption TEXT,
		content_type VARCHAR(64) NOT NULL DEFAULT 'image/jpeg',
		width INT NOT NULL DEFAULT 0,
		height INT NOT NULL DEFAULT 0,
		sharpness DOUBLE NOT NULL DEFAULT 0,
		hash BIGINT UNSIGNED NOT NULL DEFAULT 0,
		image LONGBLOB,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		INDEX job_index (job_id),
		INDEX status_index (status)
	)`

	if _, err := db.Exec(photosTableSQL); err != nil {
		return fmt.Errorf("failed to create photos table: %w", err)
	}
	log.Info("Photos table created/verified")

	return nil
}
