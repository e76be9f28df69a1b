package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"

	"fieldops-service/models"
)

type PhotosService struct {
	db *sql.DB
}

func NewPhotosService(db *sql.DB) *PhotosService {
	return &PhotosService{db: db}
}

// PhotoWithImage bundles a photo row with its stored bytes.
type PhotoWithImage struct {
	models.Photo
	Data []byte
}

const photoColumns = `id, job_id, sector, photo_type, status, reason, caption, content_type, width, height, sharpness, hash, created_at`

func scanPhoto(row interface{ Scan(...interface{}) error }) (*models.Photo, error) {
	var (
		p         models.Photo
		sector    sql.NullString
		status    string
		reason    sql.NullString
		caption   sql.NullString
		createdAt time.Time
	)
	err := row.Scan(&p.ID, &p.JobID, &sector, &p.PhotoType, &status, &reason,
		&caption, &p.ContentType, &p.Width, &p.Height, &p.Sharpness, &p.Hash, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Status, err = models.ParsePhotoStatus(status)
	if err != nil {
		return nil, fmt.Errorf("photo %s: %w", p.ID, err)
	}
	p.Sector = sector.String
	p.Reason = reason.String
	p.Caption = caption.String
	p.CreatedAt = createdAt.UTC()
	return &p, nil
}

// CreatePhoto stores the submission and its bytes with status
// PROCESSING; the validation consumer fills in the verdict later.
func (s *PhotosService) CreatePhoto(ctx context.Context, p *models.Photo, image []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT
		INTO photos (id, job_id, sector, photo_type, status, caption, content_type, image, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.JobID, p.Sector, p.PhotoType, models.PhotoProcessing.String(),
		p.Caption, p.ContentType, image, p.CreatedAt.Format(time.DateTime))
	if err != nil {
		log.Errorf("Failed to insert photo %s: %v", p.ID, err)
	}
	return err
}

// GetPhoto returns one photo row, or nil when the id is unknown.
func (s *PhotosService) GetPhoto(ctx context.Context, id string) (*models.Photo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id)
	p, err := scanPhoto(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// GetPhotoImage returns the stored bytes and content type for a photo.
func (s *PhotosService) GetPhotoImage(ctx context.Context, id string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx, `SELECT image, content_type FROM photos WHERE id = ?`, id).
		Scan(&data, &contentType)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// PhotosForJob returns a job's photos in submission order.
func (s *PhotosService) PhotosForJob(ctx context.Context, jobID string) ([]models.Photo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+photoColumns+` FROM photos
		WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		log.Errorf("Failed to query photos for job %s: %v", jobID, err)
		return nil, err
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, *p)
	}
	return photos, rows.Err()
}

// PhotosWithImagesForJob loads a job's photos together with their
// bytes, for archive export.
func (s *PhotosService) PhotosWithImagesForJob(ctx context.Context, jobID string) ([]PhotoWithImage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+photoColumns+`, image FROM photos
		WHERE job_id = ? ORDER BY id ASC`, jobID)
	if err != nil {
		log.Errorf("Failed to query photo images for job %s: %v", jobID, err)
		return nil, err
	}
	defer rows.Close()

	var photos []PhotoWithImage
	for rows.Next() {
		var (
			p         PhotoWithImage
			sector    sql.NullString
			status    string
			reason    sql.NullString
			caption   sql.NullString
			createdAt time.Time
		)
		err := rows.Scan(&p.ID, &p.JobID, &sector, &p.PhotoType, &status, &reason,
			&caption, &p.ContentType, &p.Width, &p.Height, &p.Sharpness, &p.Hash, &createdAt, &p.Data)
		if err != nil {
			return nil, err
		}
		p.Status, err = models.ParsePhotoStatus(status)
		if err != nil {
			return nil, fmt.Errorf("photo %s: %w", p.ID, err)
		}
		p.Sector = sector.String
		p.Reason = reason.String
		p.Caption = caption.String
		p.CreatedAt = createdAt.UTC()
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// PassedHashesForJob returns the perceptual hashes of the job's
// accepted photos, the reference set for duplicate detection.
func (s *PhotosService) PassedHashesForJob(ctx context.Context, jobID string) ([]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT hash FROM photos
		WHERE job_id = ? AND status = ?`, jobID, models.PhotoPass.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []uint64
	for rows.Next() {
		var h uint64
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// ApplyValidation records the validation verdict on the photo row.
func (s *PhotosService) ApplyValidation(ctx context.Context, res *models.ValidationResult) error {
	_, err := s.db.ExecContext(ctx, `UPDATE photos SET
		status = ?, reason = ?, width = ?, height = ?, sharpness = ?, hash = ?
		WHERE id = ?`,
		res.Status.String(), res.Reason, res.Width, res.Height, res.Sharpness, res.Hash, res.PhotoID)
	if err != nil {
		log.Errorf("Failed to apply validation for photo %s: %v", res.PhotoID, err)
	}
	return err
}
