package services

import (
	"testing"

	"fieldops-service/models"
)

func TestCanonicalType(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"label", "LABELLING"},
		{"Labelling", "LABELLING"},
		{"labeling", "LABELLING"},
		{"azi", "AZIMUTH"},
		{"ANGLE", "AZIMUTH"},
		{"tilt", "TILT"},
		{"roxtec", "ROXTEC"},
		{"", "PHOTO"},
		{"  ", "PHOTO"},
	}
	for _, tt := range tests {
		if got := CanonicalType(tt.input); got != tt.want {
			t.Errorf("CanonicalType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIsCaptionValidatedType(t *testing.T) {
	for _, v := range []string{"label", "LABELLING", "azimuth", "angle"} {
		if !IsCaptionValidatedType(v) {
			t.Errorf("IsCaptionValidatedType(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"TILT", "ROXTEC", "", "INSTALLATION"} {
		if IsCaptionValidatedType(v) {
			t.Errorf("IsCaptionValidatedType(%q) = true, want false", v)
		}
	}
}

func TestRequiredTypesForSector(t *testing.T) {
	got := RequiredTypesForSector("Sec1")
	if len(got) != 14 {
		t.Fatalf("checklist has %d entries, want 14", len(got))
	}
	if got[0] != "INSTALLATION" || got[len(got)-1] != "GROUNDING_OGB_TOWER" {
		t.Errorf("checklist order wrong: first=%q last=%q", got[0], got[len(got)-1])
	}
}

// Every checklist code must be a fixed point of CanonicalType. A code
// that canonicalizes to something else can never match its own slot,
// and the checklist cursor would stall there.
func TestChecklistCodesAreCanonical(t *testing.T) {
	for _, code := range RequiredTypesForSector("Sec1") {
		if got := CanonicalType(code); got != code {
			t.Errorf("CanonicalType(%q) = %q, not a fixed point", code, got)
		}
	}
}

func TestChooseActiveSector(t *testing.T) {
	blocks := []models.SectorBlock{
		{Sector: "Sec1", Status: models.JobDone},
		{Sector: "Sec2", Status: models.JobPending},
		{Sector: "Sec3", Status: models.JobInProgress},
	}
	b, ok := ChooseActiveSector(blocks)
	if !ok || b.Sector != "Sec3" {
		t.Errorf("ChooseActiveSector = %v, %v; want the IN_PROGRESS block Sec3", b, ok)
	}

	blocks[2].Status = models.JobDone
	b, ok = ChooseActiveSector(blocks)
	if !ok || b.Sector != "Sec2" {
		t.Errorf("ChooseActiveSector = %v, %v; want the PENDING block Sec2", b, ok)
	}

	blocks[1].Status = models.JobDone
	if _, ok = ChooseActiveSector(blocks); ok {
		t.Error("ChooseActiveSector found work on an all-done job")
	}
}

func TestAllSectorsDone(t *testing.T) {
	if AllSectorsDone(nil) {
		t.Error("empty block list must not count as done")
	}
	blocks := []models.SectorBlock{
		{Sector: "Sec1", Status: models.JobDone},
		{Sector: "Sec2", Status: models.JobDone},
	}
	if !AllSectorsDone(blocks) {
		t.Error("all DONE blocks must count as done")
	}
	blocks[1].Status = models.JobPending
	if AllSectorsDone(blocks) {
		t.Error("a PENDING block must not count as done")
	}
}
