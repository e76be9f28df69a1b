package models

import (
	"time"
)

// SectorBlock represents the per-sector checklist state attached to a job
type SectorBlock struct {
	Sector        string    `json:"sector"`
	RequiredTypes []string  `json:"required_types"`
	CurrentIndex  int       `json:"current_index"`
	Status        JobStatus `json:"status"`
}

// Job represents one unit of field work: one worker, one site, one sector
type Job struct {
	ID          string        `json:"id"`
	WorkerPhone string        `json:"worker_phone"`
	SiteName    string        `json:"site_name"`
	Sector      string        `json:"sector"`
	Status      JobStatus     `json:"status"`
	Circle      string        `json:"circle"`
	Company     string        `json:"company"`
	Sectors     []SectorBlock `json:"sectors"`
	CreatedAt   *time.Time    `json:"created_at,omitempty"`

	// Fields promoted from validated photo captions
	MacID      string   `json:"mac_id,omitempty"`
	RSN        string   `json:"rsn,omitempty"`
	AzimuthDeg *float64 `json:"azimuth_deg,omitempty"`
}

// Photo represents a submitted photo and its validation outcome
type Photo struct {
	ID          string      `json:"id"`
	JobID       string      `json:"job_id"`
	Sector      string      `json:"sector"`
	PhotoType   string      `json:"photo_type"`
	Status      PhotoStatus `json:"status"`
	Reason      string      `json:"reason,omitempty"`
	Caption     string      `json:"caption,omitempty"`
	ContentType string      `json:"content_type"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Sharpness   float64     `json:"sharpness"`
	Hash        uint64      `json:"hash"`
	CreatedAt   time.Time   `json:"created_at"`
	// ImageURL is filled by the API layer; image bytes live in their
	// own table and are never inlined into listings.
	ImageURL string `json:"image_url,omitempty"`
}

// SiteExportSummary is the read-only projection emitted for sites whose
// required sectors are all present and done
type SiteExportSummary struct {
	ID        string        `json:"id"`
	SiteName  string        `json:"site_name"`
	Circle    string        `json:"circle"`
	Company   string        `json:"company"`
	Status    JobStatus     `json:"status"`
	Sectors   []SectorBlock `json:"sectors"`
	CreatedAt time.Time     `json:"created_at"`
}

// CreateJobRequest is the payload for registering a job
type CreateJobRequest struct {
	WorkerPhone string `json:"worker_phone" binding:"required"`
	SiteName    string `json:"site_name" binding:"required"`
	Sector      string `json:"sector" binding:"required"`
	Circle      string `json:"circle"`
	Company     string `json:"company"`
}

// PhotoSubmission is the broker message queued for validation
type PhotoSubmission struct {
	PhotoID string `json:"photo_id"`
	JobID   string `json:"job_id"`
	Caption string `json:"caption,omitempty"`
}

// ValidationResult is what the validation pipeline reports back
type ValidationResult struct {
	PhotoID   string      `json:"photo_id"`
	JobID     string      `json:"job_id"`
	Status    PhotoStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Sharpness float64     `json:"sharpness"`
	Hash      uint64      `json:"hash"`

	// Extracted caption fields, promoted onto the job on PASS
	MacID      string   `json:"mac_id,omitempty"`
	RSN        string   `json:"rsn,omitempty"`
	AzimuthDeg *float64 `json:"azimuth_deg,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}
