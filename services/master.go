package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MasterRow holds the planning values looked up from the uploaded
// master workbook for one site.
type MasterRow struct {
	SiteName      string
	PMPSapID      string
	A6NEID        string
	GISSectorID   string
	A6IP          string
	AntennaHeight string
	A6Tilt        string
}

// findColumn returns the index of the first header containing all the
// given keys, case-insensitively. The master sheets come from several
// planning teams and the headers are never spelled quite the same way.
func findColumn(headers []string, keys ...string) int {
	for i, h := range headers {
		low := strings.ToLower(h)
		all := true
		for _, k := range keys {
			if !strings.Contains(low, strings.ToLower(k)) {
				all = false
				break
			}
		}
		if all {
			return i
		}
	}
	return -1
}

// ParseMasterWorkbook reads the first sheet of the uploaded master
// workbook and returns the row matching siteID. An exact match on the
// site column is preferred, then a case-insensitive substring match.
// A site absent from the workbook yields an empty MasterRow, not an
// error.
func ParseMasterWorkbook(r io.Reader, siteID string) (MasterRow, error) {
	var out MasterRow

	f, err := excelize.OpenReader(r)
	if err != nil {
		return out, fmt.Errorf("failed to read master workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return out, fmt.Errorf("master workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return out, fmt.Errorf("failed to read master sheet: %w", err)
	}
	if len(rows) == 0 {
		return out, fmt.Errorf("master sheet is empty")
	}

	headers := rows[0]
	siteCol := findColumn(headers, "enbsiteid")
	if siteCol < 0 {
		siteCol = findColumn(headers, "site")
	}
	if siteCol < 0 {
		return out, fmt.Errorf("site column not found in master workbook")
	}

	pmpCol := findColumn(headers, "pmp sap id", "sap")
	a6Col := findColumn(headers, "a6neid")
	gisCol := findColumn(headers, "gis sector_id", "sector")
	a6ipCol := findColumn(headers, "a6 ip")
	heightCol := findColumn(headers, "enb antenna height")
	tiltCol := findColumn(headers, "proposed a6 tilt")
	nameCol := findColumn(headers, "site name")

	cell := func(row []string, col int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	}

	want := strings.TrimSpace(siteID)
	var match []string
	for _, row := range rows[1:] {
		if cell(row, siteCol) == want {
			match = row
			break
		}
	}
	if match == nil {
		low := strings.ToLower(want)
		for _, row := range rows[1:] {
			if strings.Contains(strings.ToLower(cell(row, siteCol)), low) {
				match = row
				break
			}
		}
	}
	if match == nil {
		return out, nil
	}

	out.SiteName = cell(match, nameCol)
	out.PMPSapID = cell(match, pmpCol)
	out.A6NEID = cell(match, a6Col)
	out.GISSectorID = cell(match, gisCol)
	out.A6IP = cell(match, a6ipCol)
	out.AntennaHeight = cell(match, heightCol)
	out.A6Tilt = cell(match, tiltCol)
	return out, nil
}
