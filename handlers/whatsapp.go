package handlers

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"fieldops-service/models"
	"fieldops-service/services"
	"fieldops-service/twilio"
	"fieldops-service/utils"
)

func jobFinished(j *models.Job) bool {
	if j == nil {
		return true
	}
	if j.Status == models.JobDone {
		return true
	}
	for _, b := range j.Sectors {
		if b.CurrentIndex < len(b.RequiredTypes) {
			return false
		}
	}
	return len(j.Sectors) > 0
}

func expectedTypeForJob(j *models.Job) string {
	if block, ok := services.ChooseActiveSector(j.Sectors); ok {
		if block.CurrentIndex < len(block.RequiredTypes) {
			return block.RequiredTypes[block.CurrentIndex]
		}
	}
	return ""
}

func (h *Handlers) replyTwiML(c *gin.Context, body string, mediaURLs ...string) {
	xml, err := twilio.BuildTwiMLReply(body, mediaURLs...)
	if err != nil {
		log.Errorf("Failed to build TwiML reply: %v", err)
		c.String(http.StatusInternalServerError, "reply error")
		return
	}
	c.Data(http.StatusOK, "application/xml", xml)
}

// markInProgress flips the job and its sector blocks to IN_PROGRESS.
func (h *Handlers) markInProgress(c *gin.Context, job *models.Job) error {
	for i := range job.Sectors {
		if job.Sectors[i].Status == models.JobPending {
			job.Sectors[i].Status = models.JobInProgress
		}
	}
	job.Status = models.JobInProgress
	return h.jobs.SaveProgress(c.Request.Context(), job.ID, job.Sectors, job.Status)
}

// selectActiveJob picks the job the worker's message applies to:
// a running job first, then the single pending one, otherwise the
// pending job whose sector id matches the message text. The second
// return is a TwiML prompt when no job could be selected.
func (h *Handlers) selectActiveJob(c *gin.Context, worker, messageBody string) (*models.Job, string) {
	jobs, err := h.jobs.JobsByWorker(c.Request.Context(), worker)
	if err != nil {
		log.Errorf("Failed to load jobs for %s: %v", worker, err)
		return nil, "Something went wrong. Please try again later."
	}

	var pending []*models.Job
	for i := range jobs {
		j := &jobs[i]
		if jobFinished(j) {
			continue
		}
		switch j.Status {
		case models.JobInProgress:
			return j, ""
		case models.JobPending:
			pending = append(pending, j)
		}
	}

	switch len(pending) {
	case 0:
		return nil, "No active job assigned yet. Please contact your supervisor."
	case 1:
		if err := h.markInProgress(c, pending[0]); err != nil {
			log.Errorf("Failed to start job %s: %v", pending[0].ID, err)
			return nil, "Something went wrong. Please try again later."
		}
		return pending[0], ""
	}

	bySector := make(map[string]*models.Job, len(pending))
	for _, j := range pending {
		if s := strings.TrimSpace(j.Sector); s != "" {
			bySector[strings.ToUpper(s)] = j
		}
	}
	if matched, ok := bySector[strings.ToUpper(strings.TrimSpace(messageBody))]; ok {
		if err := h.markInProgress(c, matched); err != nil {
			log.Errorf("Failed to start job %s: %v", matched.ID, err)
			return nil, "Something went wrong. Please try again later."
		}
		return matched, ""
	}

	sectors := make([]string, 0, len(bySector))
	for s := range bySector {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)
	return nil, "You have multiple active sectors. Reply with the Sector ID you are working on:\n" +
		strings.Join(sectors, "\n")
}

// WhatsAppWebhook handles POST /api/whatsapp/webhook. Twilio posts the
// inbound message form-encoded; the response is TwiML.
func (h *Handlers) WhatsAppWebhook(c *gin.Context) {
	from := c.PostForm("From")
	if from == "" {
		from = c.PostForm("WaId")
	}
	worker, err := utils.NormalizePhone(from)
	if err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}
	body := strings.TrimSpace(c.PostForm("Body"))
	mediaCount := c.PostForm("NumMedia")

	log.Infof("Inbound WhatsApp message from %s, media=%s", worker, mediaCount)

	job, prompt := h.selectActiveJob(c, worker, body)
	if job == nil {
		h.replyTwiML(c, prompt)
		return
	}

	expected := expectedTypeForJob(job)
	fallback := expected
	if fallback == "" {
		fallback = "LABELLING"
	}

	if mediaCount == "" || mediaCount == "0" {
		h.replyTwiML(c,
			services.TypePrompt(fallback)+"\nSend 1 image at a time.",
			services.TypeExampleURL(fallback))
		return
	}

	mediaURL := c.PostForm("MediaUrl0")
	contentType := c.PostForm("MediaContentType0")
	if mediaURL == "" || !strings.HasPrefix(contentType, "image/") {
		h.replyTwiML(c,
			"Please send a valid image. "+services.TypePrompt(fallback),
			services.TypeExampleURL(fallback))
		return
	}

	data, fetchedType, err := h.twilio.FetchMedia(mediaURL)
	if err != nil {
		log.Errorf("Failed to fetch media for %s: %v", worker, err)
		h.replyTwiML(c,
			"Could not download the image. Please resend.\n"+services.TypePrompt(fallback),
			services.TypeExampleURL(fallback))
		return
	}
	if fetchedType != "" {
		contentType = fetchedType
	}

	if _, err := h.storeAndQueuePhoto(c, job, data, contentType, body, expected); err != nil {
		h.replyTwiML(c, "Could not save the image. Please resend later.")
		return
	}

	h.replyTwiML(c, "Got the photo. Processing, please wait for the next instruction.")
}

// WhatsAppError receives Twilio's error callbacks. The payload shape
// varies per failure class, so it is logged verbatim and acknowledged.
func (h *Handlers) WhatsAppError(c *gin.Context) {
	if err := c.Request.ParseForm(); err == nil && len(c.Request.PostForm) > 0 {
		log.Errorf("Twilio error callback: %v", c.Request.PostForm)
	} else {
		body, _ := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
		log.Errorf("Twilio error callback: %s", string(body))
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
