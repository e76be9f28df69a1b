package services

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SectorInfo carries the per-sector values that land in the ATP sheet.
type SectorInfo struct {
	Sector  string
	MacID   string
	RSN     string
	Azimuth string
}

var (
	digitsRe   = regexp.MustCompile(`\d+`)
	trailingRe = regexp.MustCompile(`(\d+)$`)
)

func sectorNum(label string) (int, bool) {
	m := digitsRe.FindString(label)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func sectorNumbers(infos []SectorInfo) []int {
	var nums []int
	for _, d := range infos {
		if n, ok := sectorNum(d.Sector); ok {
			nums = append(nums, n)
		}
	}
	sort.Ints(nums)
	return nums
}

// a6ForSector derives the NE id for one sector from the master's base
// id. With a single sector the base id belongs to that sector alone;
// with several, the trailing digit of the base id is replaced by the
// sector number.
func a6ForSector(baseA6 string, nums []int, target int) string {
	if baseA6 == "" {
		return ""
	}
	m := trailingRe.FindString(baseA6)
	if m == "" {
		return baseA6
	}
	prefix := baseA6[:len(baseA6)-len(m)]

	if len(nums) == 1 {
		if nums[0] == target {
			return baseA6
		}
		return ""
	}
	return fmt.Sprintf("%s%s%d", prefix, m[:len(m)-1], target)
}

// a6ipForSector walks the pool address forward from the first present
// sector: the trailing number of the base address is offset by the
// sector's distance from the lowest sector.
func a6ipForSector(baseIP string, nums []int, target int) string {
	if baseIP == "" {
		return ""
	}
	m := trailingRe.FindString(baseIP)
	if m == "" {
		return baseIP
	}
	baseLast, err := strconv.Atoi(m)
	if err != nil {
		return baseIP
	}
	if len(nums) == 1 {
		if nums[0] == target {
			return baseIP
		}
		return ""
	}
	newLast := baseLast + (target - nums[0])
	prefix := baseIP[:len(baseIP)-len(strconv.Itoa(baseLast))]
	return prefix + strconv.Itoa(newLast)
}

// repeatBase renders one master value once per sector, comma joined.
func repeatBase(val string, n int) string {
	v := strings.TrimSpace(val)
	if v == "" || n <= 0 {
		return ""
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = v
	}
	return strings.Join(parts, ", ")
}

// BuildATPWorkbook fills the embedded ATP11A checklist with the
// master-workbook values and the per-sector MAC/RSN/azimuth data, and
// returns the finished workbook bytes.
func BuildATPWorkbook(circle string, master MasterRow, infos []SectorInfo) ([]byte, error) {
	sorted := make([]SectorInfo, len(infos))
	copy(sorted, infos)
	sort.SliceStable(sorted, func(i, k int) bool {
		a, _ := sectorNum(sorted[i].Sector)
		b, _ := sectorNum(sorted[k].Sector)
		return a < b
	})
	nums := sectorNumbers(sorted)

	var azimuths []string
	for _, d := range sorted {
		if v := strings.TrimSpace(d.Azimuth); v != "" {
			azimuths = append(azimuths, v)
		}
	}
	azimuthCombined := strings.Join(azimuths, ", ")
	heightCombined := repeatBase(master.AntennaHeight, len(sorted))
	tiltCombined := repeatBase(master.A6Tilt, len(sorted))

	bySector := func(sector string) (mac, rsn string) {
		for _, d := range sorted {
			if d.Sector == sector {
				return d.MacID, d.RSN
			}
		}
		return "", ""
	}

	f := excelize.NewFile()
	const sheet = "ATP11A"
	f.SetSheetName("Sheet1", sheet)
	if err := f.SetSheetRow(sheet, "A1", &[]interface{}{"Checklist Item", "Source", "Value"}); err != nil {
		return nil, err
	}

	azimuthSeen, heightSeen, tiltSeen := false, false, false
	rowNum := 2
	for _, row := range atpTemplateRows {
		expectedSector := ""
		if strings.Contains(strings.ToLower(row.Source), "sect") {
			if n, ok := sectorNum(row.Source); ok {
				expectedSector = fmt.Sprintf("Sec%d", n)
			}
		}

		val := row.Value
		lower := strings.ToLower(row.HardCoded)
		switch {
		case strings.Contains(lower, "pmp sap id"):
			val = master.PMPSapID
		case strings.Contains(lower, "site/location name"), strings.Contains(lower, "site/location address"):
			val = master.SiteName
		case strings.Contains(lower, "a6 ne id"):
			if n, ok := sectorNum(expectedSector); ok {
				val = a6ForSector(master.A6NEID, nums, n)
			} else {
				val = ""
			}
		case strings.Contains(lower, "ipv6 pool address"):
			var ips []string
			for _, d := range sorted {
				if n, ok := sectorNum(d.Sector); ok {
					if ip := a6ipForSector(master.A6IP, nums, n); ip != "" {
						ips = append(ips, ip)
					}
				}
			}
			val = strings.Join(ips, ", ")
		case strings.Contains(lower, "gis sector"),
			strings.Contains(lower, "enb sap id"),
			strings.Contains(lower, "enb/css site sap id"):
			val = master.GISSectorID
		case strings.Contains(lower, "planned azimuth"), strings.Contains(lower, "actual azimuth"):
			if !azimuthSeen {
				val = azimuthCombined
				azimuthSeen = true
			} else {
				val = ""
			}
		case strings.Contains(lower, "planned height"), strings.Contains(lower, "actual height"):
			if !heightSeen {
				val = heightCombined
				heightSeen = true
			} else {
				val = ""
			}
		case strings.Contains(lower, "actual tilt"):
			if !tiltSeen {
				val = tiltCombined
				tiltSeen = true
			} else {
				val = ""
			}
		case strings.Contains(lower, "mac address"):
			val, _ = bySector(expectedSector)
		case strings.Contains(lower, "serial number"):
			_, val = bySector(expectedSector)
		case strings.Contains(lower, "circle"):
			val = circle
		}

		cell := fmt.Sprintf("A%d", rowNum)
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{row.HardCoded, row.Source, val}); err != nil {
			return nil, err
		}
		rowNum++
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	sectionStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFFF00"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	_ = f.SetCellStyle(sheet, "A1", "C1", headerStyle)
	for i, row := range atpTemplateRows {
		if atpSectionHeaders[row.HardCoded] {
			cell := fmt.Sprintf("A%d", i+2)
			_ = f.SetCellStyle(sheet, cell, cell, sectionStyle)
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 52)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "C", 40)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
