package services

import (
	"sort"
	"strings"
	"time"

	"fieldops-service/models"
	"fieldops-service/utils"
)

// DefaultRequiredSectors is the canonical three-sector export set.
var DefaultRequiredSectors = []string{"Sec1", "Sec2", "Sec3"}

// jobTime resolves a job's creation time. Jobs without an explicit
// timestamp fall back to the time embedded in the id; malformed ids
// resolve to epoch zero so the result stays stable across calls.
func jobTime(j *models.Job) time.Time {
	if j.CreatedAt != nil {
		return *j.CreatedAt
	}
	return utils.TimestampFromID(j.ID)
}

// sectorDone reports whether a job counts as complete for readiness.
// The first sector block, when present, is authoritative over the
// job's top-level status.
func sectorDone(j *models.Job) bool {
	if len(j.Sectors) > 0 {
		return j.Sectors[0].Status == models.JobDone
	}
	return j.Status == models.JobDone
}

// summaryBlock projects the winning job for a canonical sector into
// the summary's sector block.
func summaryBlock(canonical string, j *models.Job) models.SectorBlock {
	if len(j.Sectors) > 0 {
		b := j.Sectors[0]
		b.Sector = canonical
		return b
	}
	return models.SectorBlock{
		Sector: canonical,
		Status: j.Status,
	}
}

// ComputeReadySites scans the job list and emits one export summary
// per site that has every required sector present and done. It is a
// pure function of its input: recomputed from scratch on every call,
// no caching, no side effects.
//
// Within a site, when several jobs land on the same canonical sector
// the one with the latest creation time wins; on an exact tie the
// later-seen job wins. Jobs with a blank site name are skipped, and
// jobs whose sector label normalizes to empty do not contribute a
// sector. Results are sorted newest first.
func ComputeReadySites(jobs []models.Job, required []string) []models.SiteExportSummary {
	if len(required) == 0 {
		required = DefaultRequiredSectors
	}

	type group struct {
		winners map[string]*models.Job
	}
	groups := make(map[string]*group)
	var order []string

	for i := range jobs {
		j := &jobs[i]
		site := strings.TrimSpace(j.SiteName)
		if site == "" {
			continue
		}
		g, ok := groups[site]
		if !ok {
			g = &group{winners: make(map[string]*models.Job)}
			groups[site] = g
			order = append(order, site)
		}
		canonical := NormalizeSector(j.Sector)
		if canonical == "" {
			continue
		}
		cur, ok := g.winners[canonical]
		if !ok || !jobTime(j).Before(jobTime(cur)) {
			g.winners[canonical] = j
		}
	}

	var out []models.SiteExportSummary
	for _, site := range order {
		g := groups[site]

		ready := true
		for _, sector := range required {
			j, ok := g.winners[sector]
			if !ok || !sectorDone(j) {
				ready = false
				break
			}
		}
		if !ready {
			continue
		}

		var repID string
		var latest time.Time
		blocks := make([]models.SectorBlock, 0, len(required))
		for _, sector := range required {
			j := g.winners[sector]
			if repID == "" {
				repID = j.ID
			}
			if ts := jobTime(j); ts.After(latest) {
				latest = ts
			}
			blocks = append(blocks, summaryBlock(sector, j))
		}
		first := g.winners[required[0]]

		out = append(out, models.SiteExportSummary{
			ID:        repID,
			SiteName:  site,
			Circle:    first.Circle,
			Company:   first.Company,
			Status:    models.JobDone,
			Sectors:   blocks,
			CreatedAt: latest,
		})
	}

	sort.SliceStable(out, func(i, k int) bool {
		return out[i].CreatedAt.After(out[k].CreatedAt)
	})
	return out
}
