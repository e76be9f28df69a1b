package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"fieldops-service/models"
	"fieldops-service/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// collectSectorInfo gathers per-sector MAC/RSN/azimuth for every job of
// the site. Job-level fields win; blank ones fall back to caption fields
// of the job's accepted photos.
func (h *Handlers) collectSectorInfo(c *gin.Context, worker, site string) ([]services.SectorInfo, error) {
	related, err := h.jobs.JobsForSite(c.Request.Context(), worker, site)
	if err != nil {
		return nil, err
	}

	infos := make([]services.SectorInfo, 0, len(related))
	for _, j := range related {
		info := services.SectorInfo{
			Sector: services.NormalizeSector(j.Sector),
			MacID:  j.MacID,
			RSN:    j.RSN,
		}
		if j.AzimuthDeg != nil {
			info.Azimuth = strconv.FormatFloat(*j.AzimuthDeg, 'f', -1, 64)
		}

		if info.MacID == "" || info.RSN == "" {
			photos, err := h.photos.PhotosForJob(c.Request.Context(), j.ID)
			if err != nil {
				return nil, err
			}
			for _, p := range photos {
				if p.Status != models.PhotoPass || p.Caption == "" {
					continue
				}
				mac, rsn, _ := services.ExtractCaptionFields(p.Caption)
				if info.MacID == "" && mac != "" {
					info.MacID = mac
				}
				if info.RSN == "" && rsn != "" {
					info.RSN = rsn
				}
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ExportATP handles POST /api/jobs/:id/export.xlsx. The multipart form
// carries the master workbook under "mainExcel"; the response is the
// filled acceptance sheet for the job's site.
func (h *Handlers) ExportATP(c *gin.Context) {
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

	fileHeader, err := c.FormFile("mainExcel")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mainExcel file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded Excel"})
		return
	}
	defer file.Close()

	master, err := services.ParseMasterWorkbook(file, job.SiteName)
	if err != nil {
		log.Errorf("Failed to parse master workbook: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded Excel"})
		return
	}

	infos, err := h.collectSectorInfo(c, job.WorkerPhone, job.SiteName)
	if err != nil {
		log.Errorf("Failed to collect sector info for site %s: %v", job.SiteName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect sector data"})
		return
	}

	out, err := services.BuildATPWorkbook(job.Circle, master, infos)
	if err != nil {
		log.Errorf("Failed to build acceptance workbook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	siteName := master.SiteName
	if siteName == "" {
		siteName = job.SiteName
	}
	filename := fmt.Sprintf("A6_%s.xlsx", siteName)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Header("X-Filename", filename)
	c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Filename")
	c.Data(http.StatusOK, xlsxContentType, out)
}

// ExportJobZip handles GET /api/jobs/:id/export.zip and bundles the
// job's photos into one archive.
func (h *Handlers) ExportJobZip(c *gin.Context) {
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

	stored, err := h.photos.PhotosWithImagesForJob(c.Request.Context(), jobID)
	if err != nil {
		log.Errorf("Failed to load photos for job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load photos"})
		return
	}
	if len(stored) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no photos for this job"})
		return
	}

	bundle := make([]services.BundlePhoto, 0, len(stored))
	for _, p := range stored {
		sector := p.Sector
		if sector == "" {
			sector = job.Sector
		}
		bundle = append(bundle, services.BundlePhoto{
			PhotoType:   p.PhotoType,
			Sector:      sector,
			ContentType: p.ContentType,
			Data:        p.Data,
		})
	}

	out, err := services.BuildJobZip(job.Sector, bundle)
	if err != nil {
		log.Errorf("Failed to build archive for job %s: %v", jobID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
		return
	}

	filename := fmt.Sprintf("job_%s_sec%s.zip", jobID, job.Sector)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Data(http.StatusOK, "application/zip", out)
}

// SectorTemplate handles GET /api/templates/sector/:sector and
// returns the photo checklist for one sector.
func (h *Handlers) SectorTemplate(c *gin.Context) {
	sector := c.Param("sector")
	types := services.RequiredTypesForSector(sector)

	labels := make(map[string]string, len(types))
	for _, t := range types {
		labels[t] = services.TypeLabel(t)
	}
	c.JSON(http.StatusOK, gin.H{
		"required_types": types,
		"labels":         labels,
		"sector":         sector,
	})
}

// logicalPhotoName mirrors the archive naming: sec<n>_<type>.<ext>.
func logicalPhotoName(sector, photoType, contentType string) string {
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/webp":
		ext = ".webp"
	}
	base := strings.ToLower(services.CanonicalType(photoType))
	if n, ok := services.SectorNumber(sector); ok {
		return fmt.Sprintf("sec%d_%s%s", n, base, ext)
	}
	return base + ext
}

func parseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}

// ExportSectorWorkbook handles GET /api/exports/sector.xlsx, a manual
// export of photo rows grouped into one sheet per sector. Optional
// date_from/date_to query params (YYYY-MM-DD) bound the job window.
func (h *Handlers) ExportSectorWorkbook(c *gin.Context) {
	from, err := parseDateParam(c.Query("date_from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_from must be YYYY-MM-DD"})
		return
	}
	to, err := parseDateParam(c.Query("date_to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_to must be YYYY-MM-DD"})
		return
	}
	if !to.IsZero() {
		// Closed window: include the whole end day.
		to = to.Add(24*time.Hour - time.Second)
	}

	jobs, err := h.jobs.JobsBetween(c.Request.Context(), from, to)
	if err != nil {
		log.Errorf("Failed to list jobs for export: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jobs"})
		return
	}

	bySector := make(map[string][]services.SectorPhotoRow)
	for _, j := range jobs {
		photos, err := h.photos.PhotosForJob(c.Request.Context(), j.ID)
		if err != nil {
			log.Errorf("Failed to load photos for job %s: %v", j.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load photos"})
			return
		}
		for _, p := range photos {
			sector := services.NormalizeSector(p.Sector)
			mac, rsn, az := "", "", (*float64)(nil)
			if p.Caption != "" {
				mac, rsn, az = services.ExtractCaptionFields(p.Caption)
			}
			row := services.SectorPhotoRow{
				JobID:       j.ID,
				WorkerPhone: j.WorkerPhone,
				Sector:      sector,
				PhotoID:     p.ID,
				PhotoType:   p.PhotoType,
				LogicalName: logicalPhotoName(sector, p.PhotoType, p.ContentType),
				MacID:       mac,
				RSN:         rsn,
				AzimuthDeg:  az,
				Sharpness:   p.Sharpness,
				Status:      p.Status.String(),
				Reason:      p.Reason,
			}
			bySector[sector] = append(bySector[sector], row)
		}
	}

	out, err := services.BuildSectorWorkbook(bySector)
	if err != nil {
		log.Errorf("Failed to build sector workbook: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build workbook"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="export_sector.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, out)
}

// ExportSiteZip bundles the photos of every sector job at a site into
// one archive. The site must be export-ready: each required sector has
// a DONE job.
func (h *Handlers) ExportSiteZip(c *gin.Context) {
	site := strings.TrimSpace(c.Param("siteId"))

	related, err := h.jobs.JobsBySite(c.Request.Context(), site)
	if err != nil {
		log.Errorf("Failed to load jobs for site %s: %v", site, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load jobs"})
		return
	}

	ready := false
	for _, s := range services.ComputeReadySites(related, h.cfg.RequiredSectors) {
		if s.SiteName == site {
			ready = true
			break
		}
	}
	if !ready {
		c.JSON(http.StatusNotFound, gin.H{"error": "site is not export-ready"})
		return
	}

	var bundle []services.BundlePhoto
	for _, j := range related {
		stored, err := h.photos.PhotosWithImagesForJob(c.Request.Context(), j.ID)
		if err != nil {
			log.Errorf("Failed to load photos for job %s: %v", j.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load photos"})
			return
		}
		for _, p := range stored {
			sector := p.Sector
			if sector == "" {
				sector = j.Sector
			}
			bundle = append(bundle, services.BundlePhoto{
				PhotoType:   p.PhotoType,
				Sector:      sector,
				ContentType: p.ContentType,
				Data:        p.Data,
			})
		}
	}
	if len(bundle) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no photos for this site"})
		return
	}

	out, err := services.BuildJobZip("", bundle)
	if err != nil {
		log.Errorf("Failed to build archive for site %s: %v", site, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
		return
	}

	filename := fmt.Sprintf("site_%s.zip", strings.ReplaceAll(site, " ", "_"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Header("X-Filename", filename)
	c.Header("Access-Control-Expose-Headers", "Content-Disposition, X-Filename")
	c.Data(http.StatusOK, "application/zip", out)
}
