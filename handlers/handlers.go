package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"fieldops-service/config"
	"fieldops-service/database"
	"fieldops-service/middleware"
	"fieldops-service/models"
	"fieldops-service/rabbitmq"
	"fieldops-service/services"
	"fieldops-service/twilio"
	"fieldops-service/utils"
	ws "fieldops-service/websocket"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	cfg       *config.Config
	jobs      *database.JobsService
	photos    *database.PhotosService
	hub       *ws.Hub
	publisher *rabbitmq.Publisher
	twilio    *twilio.Client
	issuer    *middleware.TokenIssuer
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	cfg *config.Config,
	jobs *database.JobsService,
	photos *database.PhotosService,
	hub *ws.Hub,
	publisher *rabbitmq.Publisher,
	twilioClient *twilio.Client,
	issuer *middleware.TokenIssuer,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		jobs:      jobs,
		photos:    photos,
		hub:       hub,
		publisher: publisher,
		twilio:    twilioClient,
		issuer:    issuer,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Service:   "fieldops-service",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// LoginRequest is the admin login payload
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if req.Username != h.cfg.AdminUser || req.Password != h.cfg.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := h.issuer.GenerateToken(req.Username)
	if err != nil {
		log.Errorf("Failed to generate token: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateJob handles POST /api/jobs. One job per worker/site/sector
// triple; posting an existing triple returns the stored job.
func (h *Handlers) CreateJob(c *gin.Context) {
	var req models.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "worker_phone, site_name and sector are required"})
		return
	}

	job, err := h.jobs.CreateOrExtendJob(c.Request.Context(), &req,
		services.RequiredTypesForSector(req.Sector))
	if err != nil {
		log.Errorf("Failed to create job: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.hub.BroadcastEvent("job_created", job)
	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/jobs, newest first.
func (h *Handlers) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListJobs(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	c.JSON(http.StatusOK, jobs)
}

// GetJob handles GET /api/jobs/:id, returning the job and its photos.
func (h *Handlers) GetJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		log.Errorf("Failed to get job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	photos, err := h.photos.PhotosForJob(c.Request.Context(), jobID)
	if err != nil {
		log.Errorf("Failed to load photos for job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load photos"})
		return
	}
	if photos == nil {
		photos = []models.Photo{}
	}
	for i := range photos {
		photos[i].ImageURL = "/api/photos/" + photos[i].ID + "/image"
	}

	c.JSON(http.StatusOK, gin.H{"job": job, "photos": photos})
}

// ReadySites handles GET /api/ready-sites: sites where every required
// sector is present and done, newest first.
func (h *Handlers) ReadySites(c *gin.Context) {
	jobs, err := h.jobs.ListJobs(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to list jobs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	summaries := services.ComputeReadySites(jobs, h.cfg.RequiredSectors)
	if summaries == nil {
		summaries = []models.SiteExportSummary{}
	}
	c.JSON(http.StatusOK, summaries)
}

// PhotoImage handles GET /api/photos/:id/image and serves the stored bytes.
func (h *Handlers) PhotoImage(c *gin.Context) {
	photoID := c.Param("id")

	data, contentType, err := h.photos.GetPhotoImage(c.Request.Context(), photoID)
	if err != nil {
		log.Errorf("Failed to load image for photo %s: %v", photoID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load image"})
		return
	}
	if data == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "photo not found"})
		return
	}
	if contentType == "" {
		contentType = "image/jpeg"
	}
	c.Data(http.StatusOK, contentType, data)
}

// SubmitPhoto handles POST /api/jobs/:id/photos: stores the upload and
// queues it for validation. The multipart form carries the image under
// "file" and an optional "caption".
func (h *Handlers) SubmitPhoto(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		log.Errorf("Failed to get job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get job"})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read file"})
		return
	}

	expected := ""
	if block, ok := services.ChooseActiveSector(job.Sectors); ok {
		if block.CurrentIndex < len(block.RequiredTypes) {
			expected = block.RequiredTypes[block.CurrentIndex]
		}
	}

	photo, err := h.storeAndQueuePhoto(c, job, data,
		fileHeader.Header.Get("Content-Type"), c.PostForm("caption"), expected)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store photo"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"photo_id": photo.ID, "status": photo.Status})
}

// storeAndQueuePhoto persists the upload with status PROCESSING and
// publishes the submission for the validation consumer.
func (h *Handlers) storeAndQueuePhoto(c *gin.Context, job *models.Job, data []byte, contentType, caption, photoType string) (*models.Photo, error) {
	if photoType == "" {
		photoType = "LABELLING"
	}
	photo := &models.Photo{
		ID:          utils.NewObjectID(),
		JobID:       job.ID,
		Sector:      job.Sector,
		PhotoType:   services.CanonicalType(photoType),
		Status:      models.PhotoProcessing,
		Caption:     caption,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.photos.CreatePhoto(c.Request.Context(), photo, data); err != nil {
		return nil, err
	}

	if err := h.publisher.Publish(models.PhotoSubmission{
		PhotoID: photo.ID,
		JobID:   job.ID,
		Caption: caption,
	}); err != nil {
		log.Errorf("Failed to queue photo %s for validation: %v", photo.ID, err)
		return nil, err
	}
	return photo, nil
}
