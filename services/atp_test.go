package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestA6ForSector(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		nums   []int
		target int
		want   string
	}{
		{"three sectors map by digit", "MH-PUNE-6002", []int{1, 2, 3}, 1, "MH-PUNE-6001"},
		{"three sectors keep base for match", "MH-PUNE-6002", []int{1, 2, 3}, 2, "MH-PUNE-6002"},
		{"three sectors third", "MH-PUNE-6002", []int{1, 2, 3}, 3, "MH-PUNE-6003"},
		{"two sectors other slot", "MH-PUNE-6001", []int{1, 3}, 3, "MH-PUNE-6003"},
		{"single sector owns base", "MH-PUNE-6002", []int{2}, 2, "MH-PUNE-6002"},
		{"single sector others empty", "MH-PUNE-6002", []int{2}, 1, ""},
		{"no trailing digits", "MH-PUNE", []int{1, 2}, 1, "MH-PUNE"},
		{"empty base", "", []int{1, 2, 3}, 1, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a6ForSector(tt.base, tt.nums, tt.target); got != tt.want {
				t.Errorf("a6ForSector(%q, %v, %d) = %q, want %q", tt.base, tt.nums, tt.target, got, tt.want)
			}
		})
	}
}

func TestA6IPForSector(t *testing.T) {
	tests := []struct {
		name   string
		base   string
		nums   []int
		target int
		want   string
	}{
		{"offset from lowest sector", "2001:db8:100::10", []int{1, 2, 3}, 1, "2001:db8:100::10"},
		{"second sector", "2001:db8:100::10", []int{1, 2, 3}, 2, "2001:db8:100::11"},
		{"third sector", "2001:db8:100::10", []int{1, 2, 3}, 3, "2001:db8:100::12"},
		{"gap in sectors", "2001:db8:100::10", []int{2, 3}, 3, "2001:db8:100::11"},
		{"single sector match", "2001:db8:100::10", []int{2}, 2, "2001:db8:100::10"},
		{"single sector miss", "2001:db8:100::10", []int{2}, 1, ""},
		{"no trailing number", "2001:db8::", []int{1, 2}, 2, "2001:db8::"},
		{"empty base", "", []int{1, 2, 3}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a6ipForSector(tt.base, tt.nums, tt.target); got != tt.want {
				t.Errorf("a6ipForSector(%q, %v, %d) = %q, want %q", tt.base, tt.nums, tt.target, got, tt.want)
			}
		})
	}
}

func TestRepeatBase(t *testing.T) {
	if got := repeatBase("21", 3); got != "21, 21, 21" {
		t.Errorf("repeatBase = %q", got)
	}
	if got := repeatBase("  ", 3); got != "" {
		t.Errorf("blank value must yield empty, got %q", got)
	}
	if got := repeatBase("21", 0); got != "" {
		t.Errorf("zero count must yield empty, got %q", got)
	}
}

func TestBuildATPWorkbook(t *testing.T) {
	master := MasterRow{
		SiteName:      "Pune West 12",
		PMPSapID:      "SAP-001",
		A6NEID:        "MH-PUNE-6002",
		GISSectorID:   "GIS-77",
		A6IP:          "2001:db8:100::10",
		AntennaHeight: "21",
		A6Tilt:        "4",
	}
	infos := []SectorInfo{
		{Sector: "Sec2", MacID: "00AABB000002", RSN: "RSN-2", Azimuth: "130"},
		{Sector: "Sec1", MacID: "00AABB000001", RSN: "RSN-1", Azimuth: "10"},
		{Sector: "Sec3", MacID: "00AABB000003", RSN: "RSN-3", Azimuth: "250"},
	}

	data, err := BuildATPWorkbook("Maharashtra", master, infos)
	if err != nil {
		t.Fatalf("BuildATPWorkbook: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("ATP11A")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}

	value := func(item, source string) string {
		for _, r := range rows[1:] {
			a, b, c := "", "", ""
			if len(r) > 0 {
				a = r[0]
			}
			if len(r) > 1 {
				b = r[1]
			}
			if len(r) > 2 {
				c = r[2]
			}
			if a == item && (source == "" || b == source) {
				return c
			}
		}
		t.Fatalf("row %q / %q not found", item, source)
		return ""
	}

	if got := value("Circle", ""); got != "Maharashtra" {
		t.Errorf("circle = %q", got)
	}
	if got := value("PMP SAP ID", ""); got != "SAP-001" {
		t.Errorf("pmp = %q", got)
	}
	if got := value("A6 NE ID", "Sect1"); got != "MH-PUNE-6001" {
		t.Errorf("a6 sect1 = %q", got)
	}
	if got := value("A6 NE ID", "Sect3"); got != "MH-PUNE-6003" {
		t.Errorf("a6 sect3 = %q", got)
	}
	if got := value("IPv6 Pool Address", ""); got != "2001:db8:100::10, 2001:db8:100::11, 2001:db8:100::12" {
		t.Errorf("ip pool = %q", got)
	}
	// Azimuths combine in sector order into the first azimuth row only.
	if got := value("Base Radio Planned Azimuth (in degree) (Sect0,Sect1,Sect2)", ""); got != "10, 130, 250" {
		t.Errorf("azimuth = %q", got)
	}
	if got := value("Base Radio Actual Azimuth (in degree) (Sect0,Sect1,Sect2)", ""); got != "" {
		t.Errorf("second azimuth row = %q, want blank", got)
	}
	if got := value("Base Radio Planned Height (in mtr) (Sect0,Sect1,Sect2)", ""); got != "21, 21, 21" {
		t.Errorf("height = %q", got)
	}
	if got := value("Base Radio Actual Tilt (in degree) (Sect0,Sect1,Sect2)", ""); got != "4, 4, 4" {
		t.Errorf("tilt = %q", got)
	}
	if got := value("MAC Address", "Sect2"); got != "00AABB000002" {
		t.Errorf("mac sect2 = %q", got)
	}
	if got := value("Serial Number", "Sect3"); got != "RSN-3" {
		t.Errorf("rsn sect3 = %q", got)
	}
	// Template hard-coded entries survive untouched.
	if got := value("Mounting Type", ""); got != "Pole" {
		t.Errorf("mounting type = %q", got)
	}

	// First cell of the first row is the header.
	if len(rows) == 0 || !strings.HasPrefix(rows[0][0], "Checklist") {
		t.Errorf("missing header row")
	}
}
