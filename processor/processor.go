package processor

import (
	"context"
	"fmt"
	"strings"

	"github.com/apex/log"

	"fieldops-service/database"
	"fieldops-service/metrics"
	"fieldops-service/models"
	"fieldops-service/rabbitmq"
	"fieldops-service/services"
	"fieldops-service/twilio"
	"fieldops-service/websocket"
)

// Processor consumes queued photo submissions, runs the validation
// pipeline, advances the owning job's checklist and notifies the worker.
type Processor struct {
	jobs       *database.JobsService
	photos     *database.PhotosService
	validator  *services.Validator
	hub        *websocket.Hub
	twilio     *twilio.Client
	subscriber *rabbitmq.Subscriber
	routingKey string
}

func New(
	jobs *database.JobsService,
	photos *database.PhotosService,
	validator *services.Validator,
	hub *websocket.Hub,
	twilioClient *twilio.Client,
	subscriber *rabbitmq.Subscriber,
	routingKey string,
) *Processor {
	return &Processor{
		jobs:       jobs,
		photos:     photos,
		validator:  validator,
		hub:        hub,
		twilio:     twilioClient,
		subscriber: subscriber,
		routingKey: routingKey,
	}
}

// Start begins consuming photo submissions. Blocks until the subscriber
// session is established, then returns; workers run in the background.
func (p *Processor) Start() error {
	return p.subscriber.Start(map[string]rabbitmq.CallbackFunc{
		p.routingKey: p.handleSubmission,
	})
}

func (p *Processor) handleSubmission(msg *rabbitmq.Message) error {
	var sub models.PhotoSubmission
	if err := msg.UnmarshalTo(&sub); err != nil {
		return rabbitmq.Permanent(fmt.Errorf("malformed submission: %w", err))
	}

	ctx := context.Background()

	photo, err := p.photos.GetPhoto(ctx, sub.PhotoID)
	if err != nil {
		return fmt.Errorf("failed to load photo %s: %w", sub.PhotoID, err)
	}
	if photo == nil {
		return rabbitmq.Permanent(fmt.Errorf("photo %s not found", sub.PhotoID))
	}

	job, err := p.jobs.GetJob(ctx, photo.JobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", photo.JobID, err)
	}
	if job == nil {
		return rabbitmq.Permanent(fmt.Errorf("job %s not found for photo %s", photo.JobID, photo.ID))
	}

	data, _, err := p.photos.GetPhotoImage(ctx, photo.ID)
	if err != nil {
		return fmt.Errorf("failed to load image for photo %s: %w", photo.ID, err)
	}

	prior, err := p.photos.PassedHashesForJob(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load prior hashes for job %s: %w", job.ID, err)
	}

	result := p.validator.Validate(data, photo.Caption, photo.PhotoType, prior)
	result.PhotoID = photo.ID
	result.JobID = job.ID

	if err := p.photos.ApplyValidation(ctx, &result); err != nil {
		return fmt.Errorf("failed to store validation result: %w", err)
	}
	metrics.PhotoValidationsTotal.WithLabelValues(result.Status.String()).Inc()
	log.Infof("Photo %s (job %s, type %s): %s", photo.ID, job.ID, photo.PhotoType, result.Status)

	var nextType string
	jobDone := false
	if result.Status == models.PhotoPass {
		nextType, jobDone, err = p.advanceJob(ctx, job, photo)
		if err != nil {
			return err
		}
		if job.Status == models.JobDone {
			metrics.JobsCompletedTotal.Inc()
		}
		if result.MacID != "" || result.RSN != "" || result.AzimuthDeg != nil {
			if err := p.jobs.PromoteFields(ctx, job.ID, result.MacID, result.RSN, result.AzimuthDeg); err != nil {
				log.Errorf("Failed to promote caption fields for job %s: %v", job.ID, err)
			}
		}
	}

	p.hub.BroadcastEvent("photo_validated", map[string]interface{}{
		"photo_id":   photo.ID,
		"job_id":     job.ID,
		"site_name":  job.SiteName,
		"sector":     photo.Sector,
		"photo_type": photo.PhotoType,
		"status":     result.Status,
		"reason":     result.Reason,
		"job_done":   jobDone,
	})

	p.notifyWorker(job.WorkerPhone, photo.PhotoType, &result, nextType, jobDone)
	return nil
}

// advanceJob moves the checklist cursor of the photo's sector block and
// recomputes block and job status. Returns the next expected type, empty
// when the sector checklist is finished.
func (p *Processor) advanceJob(ctx context.Context, job *models.Job, photo *models.Photo) (string, bool, error) {
	blocks := job.Sectors
	idx := -1
	for i := range blocks {
		if blocks[i].Sector == photo.Sector {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false, rabbitmq.Permanent(fmt.Errorf("job %s has no sector block %q", job.ID, photo.Sector))
	}

	block := &blocks[idx]
	expected := ""
	if block.CurrentIndex < len(block.RequiredTypes) {
		expected = block.RequiredTypes[block.CurrentIndex]
	}
	// Advance only when the passed photo matches the expected slot.
	// Both sides go through CanonicalType so a block built from raw
	// codes and a photo stored canonically still line up.
	if expected != "" && services.CanonicalType(photo.PhotoType) == services.CanonicalType(expected) {
		block.CurrentIndex++
	}

	nextType := ""
	if block.CurrentIndex >= len(block.RequiredTypes) {
		block.Status = models.JobDone
	} else {
		block.Status = models.JobInProgress
		nextType = block.RequiredTypes[block.CurrentIndex]
	}

	status := models.JobInProgress
	if services.AllSectorsDone(blocks) {
		status = models.JobDone
	}
	if err := p.jobs.SaveProgress(ctx, job.ID, blocks, status); err != nil {
		return "", false, fmt.Errorf("failed to save job progress: %w", err)
	}
	job.Sectors = blocks
	job.Status = status
	return nextType, block.Status == models.JobDone, nil
}

// notifyWorker sends the proactive WhatsApp follow-up. Delivery failures
// are logged instead of requeued: the validation result is already stored.
func (p *Processor) notifyWorker(workerPhone, photoType string, result *models.ValidationResult, nextType string, sectorDone bool) {
	if p.twilio == nil || !p.twilio.Configured() {
		log.Info("Twilio not configured; outbound notification skipped")
		return
	}

	var text, media string
	label := services.TypeLabel(photoType)
	switch {
	case result.Status == models.PhotoPass && sectorDone:
		text = "Received and verified. Sector complete. Send 'hi' to start your next sector."
	case result.Status == models.PhotoPass:
		text = fmt.Sprintf("%s verified.\nNext: %s", label, services.TypePrompt(nextType))
		media = services.TypeExampleURL(nextType)
	default:
		reason := result.Reason
		if strings.TrimSpace(reason) == "" {
			reason = "needs retake"
		}
		text = fmt.Sprintf("%s failed: %s.\nPlease retake and resend.\n%s", label, reason, services.TypePrompt(photoType))
		media = services.TypeExampleURL(photoType)
	}

	if _, err := p.twilio.SendMessage(workerPhone, text, media); err != nil {
		log.Errorf("Failed to notify worker %s: %v", workerPhone, err)
	}
}
