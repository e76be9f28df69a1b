package services

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"
)

// SectorPhotoRow is one line of the sector-wise photo report.
type SectorPhotoRow struct {
	JobID       string
	WorkerPhone string
	Sector      string
	PhotoID     string
	PhotoType   string
	LogicalName string
	MacID       string
	RSN         string
	AzimuthDeg  *float64
	Sharpness   float64
	Status      string
	Reason      string
}

var sectorSheetHeaders = []interface{}{
	"Job ID", "Worker Phone", "Sector", "Photo ID", "Type", "Logical Name",
	"MAC", "RSN", "Azimuth (deg)", "Sharpness", "Status", "Reason",
}

// BuildSectorWorkbook renders the photo report grouped by sector, one
// sheet per sector, "Unknown" last.
func BuildSectorWorkbook(bySector map[string][]SectorPhotoRow) ([]byte, error) {
	f := excelize.NewFile()

	var sectors []string
	for s := range bySector {
		if s != "" {
			sectors = append(sectors, s)
		}
	}
	sort.Strings(sectors)
	if _, ok := bySector[""]; ok {
		sectors = append(sectors, "")
	}

	first := true
	for _, sector := range sectors {
		title := sector
		if title == "" {
			title = "Unknown"
		}
		if first {
			f.SetSheetName("Sheet1", title)
			first = false
		} else if _, err := f.NewSheet(title); err != nil {
			return nil, err
		}

		rows := bySector[sector]
		if len(rows) == 0 {
			_ = f.SetCellValue(title, "A1", "No data")
			continue
		}
		if err := f.SetSheetRow(title, "A1", &sectorSheetHeaders); err != nil {
			return nil, err
		}
		for i, r := range rows {
			var azimuth interface{}
			if r.AzimuthDeg != nil {
				azimuth = *r.AzimuthDeg
			}
			cells := []interface{}{
				r.JobID, r.WorkerPhone, r.Sector, r.PhotoID, r.PhotoType, r.LogicalName,
				r.MacID, r.RSN, azimuth, r.Sharpness, r.Status, r.Reason,
			}
			cell := fmt.Sprintf("A%d", i+2)
			if err := f.SetSheetRow(title, cell, &cells); err != nil {
				return nil, err
			}
		}
	}

	if len(sectors) == 0 {
		_ = f.SetCellValue("Sheet1", "A1", "No data")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
