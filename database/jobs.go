package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"

	"fieldops-service/models"
	"fieldops-service/utils"
)

type JobsService struct {
	db *sql.DB
}

func NewJobsService(db *sql.DB) *JobsService {
	return &JobsService{db: db}
}

const jobColumns = `id, worker_phone, site_name, sector, status, circle, company, sectors_json, mac_id, rsn, azimuth_deg, created_at`

func scanJob(row interface{ Scan(...interface{}) error }) (*models.Job, error) {
	var (
		j           models.Job
		status      string
		circle      sql.NullString
		company     sql.NullString
		sectorsJSON sql.NullString
		macID       sql.NullString
		rsn         sql.NullString
		azimuth     sql.NullFloat64
		createdAt   time.Time
	)
	err := row.Scan(&j.ID, &j.WorkerPhone, &j.SiteName, &j.Sector, &status,
		&circle, &company, &sectorsJSON, &macID, &rsn, &azimuth, &createdAt)
	if err != nil {
		return nil, err
	}

	j.Status, err = models.ParseJobStatus(status)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", j.ID, err)
	}
	j.Circle = circle.String
	j.Company = company.String
	j.MacID = macID.String
	j.RSN = rsn.String
	if azimuth.Valid {
		j.AzimuthDeg = &azimuth.Float64
	}
	if sectorsJSON.Valid && sectorsJSON.String != "" {
		if err := json.Unmarshal([]byte(sectorsJSON.String), &j.Sectors); err != nil {
			return nil, fmt.Errorf("job %s: bad sectors json: %w", j.ID, err)
		}
	}
	created := createdAt.UTC()
	j.CreatedAt = &created
	return &j, nil
}

// CreateOrExtendJob registers a job for a (worker, site, sector)
// triple. One row per sector keeps the WhatsApp flow, which picks jobs
// by sector, straightforward. An already-registered triple returns the
// existing row untouched.
func (s *JobsService) CreateOrExtendJob(ctx context.Context, req *models.CreateJobRequest, requiredTypes []string) (*models.Job, error) {
	worker, err := utils.NormalizePhone(req.WorkerPhone)
	if err != nil {
		return nil, fmt.Errorf("invalid worker phone: %w", err)
	}
	site := strings.TrimSpace(req.SiteName)
	sector := strings.TrimSpace(req.Sector)
	if site == "" || sector == "" {
		return nil, fmt.Errorf("site name and sector are required")
	}

	existing, err := s.findJob(ctx, worker, site, sector)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	block := models.SectorBlock{
		Sector:        sector,
		RequiredTypes: requiredTypes,
		CurrentIndex:  0,
		Status:        models.JobPending,
	}
	sectorsJSON, err := json.Marshal([]models.SectorBlock{block})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:          utils.NewObjectID(),
		WorkerPhone: worker,
		SiteName:    site,
		Sector:      sector,
		Status:      models.JobPending,
		Circle:      req.Circle,
		Company:     req.Company,
		Sectors:     []models.SectorBlock{block},
		CreatedAt:   &now,
	}

	_, err = s.db.ExecContext(ctx, `INSERT
		INTO jobs (id, worker_phone, site_name, sector, status, circle, company, sectors_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.WorkerPhone, job.SiteName, job.Sector, job.Status.String(),
		job.Circle, job.Company, string(sectorsJSON), now.Format(time.DateTime))
	if err != nil {
		log.Errorf("Failed to insert job: %v", err)
		return nil, err
	}
	log.Infof("Created job %s for %s at %s (%s)", job.ID, worker, site, sector)
	return job, nil
}

func (s *JobsService) findJob(ctx context.Context, worker, site, sector string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE worker_phone = ? AND site_name = ? AND sector = ?`, worker, site, sector)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// GetJob returns one job, or nil when the id is unknown.
func (s *JobsService) GetJob(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return job, err
}

// ListJobs returns every job, newest first.
func (s *JobsService) ListJobs(ctx context.Context) ([]models.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY id DESC`)
}

// JobsForSite returns all of a worker's jobs at one site, the related
// set an export aggregates over.
func (s *JobsService) JobsForSite(ctx context.Context, worker, site string) ([]models.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE worker_phone = ? AND site_name = ?`, worker, site)
}

// JobsBySite returns every job registered at one site, across workers.
func (s *JobsService) JobsBySite(ctx context.Context, site string) ([]models.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE site_name = ? ORDER BY id DESC`, site)
}

// JobsByWorker returns a worker's jobs, newest first.
func (s *JobsService) JobsByWorker(ctx context.Context, worker string) ([]models.Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE worker_phone = ? ORDER BY id DESC`, worker)
}

// JobsBetween returns jobs created inside the closed date window. A
// zero bound leaves that side open.
func (s *JobsService) JobsBetween(ctx context.Context, from, to time.Time) ([]models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var conds []string
	var args []interface{}
	if !from.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, from.Format(time.DateTime))
	}
	if !to.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, to.Format(time.DateTime))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return s.queryJobs(ctx, query, args...)
}

func (s *JobsService) queryJobs(ctx context.Context, query string, args ...interface{}) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Errorf("Failed to query jobs: %v", err)
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// SaveProgress persists the job's sector blocks and top-level status
// after the checklist advanced.
func (s *JobsService) SaveProgress(ctx context.Context, jobID string, blocks []models.SectorBlock, status models.JobStatus) error {
	sectorsJSON, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE jobs SET sectors_json = ?, status = ? WHERE id = ?`,
		string(sectorsJSON), status.String(), jobID)
	if err != nil {
		log.Errorf("Failed to save progress for job %s: %v", jobID, err)
	}
	return err
}

// PromoteFields copies caption-extracted identifiers onto the job,
// keeping values that are already set.
func (s *JobsService) PromoteFields(ctx context.Context, jobID, macID, rsn string, azimuthDeg *float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET
		mac_id = COALESCE(NULLIF(mac_id, ''), NULLIF(?, '')),
		rsn = COALESCE(NULLIF(rsn, ''), NULLIF(?, '')),
		azimuth_deg = COALESCE(azimuth_deg, ?)
		WHERE id = ?`, macID, rsn, azimuthDeg, jobID)
	if err != nil {
		log.Errorf("Failed to promote fields for job %s: %v", jobID, err)
	}
	return err
}
