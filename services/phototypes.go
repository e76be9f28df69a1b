package services

import (
	"os"
	"strings"

	"fieldops-service/models"
)

// PhotoType describes one entry of the per-sector photo checklist.
type PhotoType struct {
	Code       string `json:"code"`
	Label      string `json:"label"`
	Prompt     string `json:"prompt"`
	ExampleEnv string `json:"-"`
}

// DefaultPhotoTypes is the standard 14-step checklist every sector
// walks through, in capture order.
var DefaultPhotoTypes = []PhotoType{
	{"INSTALLATION", "Installation Overview", "Send the Installation photo (full view of the setup).", "EXAMPLE_URL_INSTALLATION"},
	{"CLUTTER", "Clutter", "Send the Clutter photo (wide shot of the surroundings).", "EXAMPLE_URL_CLUTTER"},
	{"AZIMUTH", "Azimuth / Compass", "Send the Azimuth photo. The compass reading must be clearly readable.", "EXAMPLE_URL_AZIMUTH"},
	{"A6_GROUNDING", "A6 Grounding", "Send the A6 Grounding photo with lugs and conductor visible.", "EXAMPLE_URL_A6_GROUNDING"},
	{"CPRI_GROUNDING", "CPRI Grounding", "Send the CPRI Grounding photo with bond points visible.", "EXAMPLE_URL_CPRI_GROUNDING"},
	{"POWER_TERM_A6", "Power Termination (A6)", "Send a close-up of the power termination at A6, no glare.", "EXAMPLE_URL_POWER_TERM_A6"},
	{"CPRI_TERM_A6", "CPRI Termination (A6)", "Send the CPRI termination at A6 with the connector fully seated.", "EXAMPLE_URL_CPRI_TERM_A6"},
	{"TILT", "Antenna Tilt", "Send the Tilt photo with the tilt value clearly visible.", "EXAMPLE_URL_TILT"},
	{"LABELLING", "Device Label (MAC/RSN)", "Send the Labelling photo with all labels readable, flat and sharp.", "EXAMPLE_URL_LABELLING"},
	{"ROXTEC", "Roxtec Seal", "Send the Roxtec sealing photo with the modules visible.", "EXAMPLE_URL_ROXTEC"},
	{"A6_TOWER", "A6 Tower", "Send the A6 Tower overview photo showing the whole panel.", "EXAMPLE_URL_A6_TOWER"},
	{"MCB_POWER", "MCB Power", "Send the MCB Power photo with breaker and rating visible.", "EXAMPLE_URL_MCB_POWER"},
	{"CPRI_TERM_SWITCH_CSS", "CPRI Termination (Switch/CSS)", "Send the CPRI termination photo at the Switch-CSS side.", "EXAMPLE_URL_CPRI_TERM_SWITCH_CSS"},
	{"GROUNDING_OGB_TOWER", "Grounding OGB / Tower", "Send the Grounding at OGB Tower photo with bonding clear.", "EXAMPLE_URL_GROUNDING_OGB_TOWER"},
}

// typeAliases maps the spellings workers actually type onto checklist
// codes. Canonical forms must round-trip: CanonicalType(code) == code
// for every code in DefaultPhotoTypes, or the checklist cursor stalls.
var typeAliases = map[string]string{
	"label":     "LABELLING",
	"labelling": "LABELLING",
	"labeling":  "LABELLING",
	"angle":     "AZIMUTH",
	"azimuth":   "AZIMUTH",
	"azi":       "AZIMUTH",
}

var typeIndex = func() map[string]PhotoType {
	m := make(map[string]PhotoType, len(DefaultPhotoTypes))
	for _, pt := range DefaultPhotoTypes {
		m[pt.Code] = pt
	}
	return m
}()

// CanonicalType collapses the spellings workers actually type into one
// canonical code. An empty input means "some photo".
func CanonicalType(ptype string) string {
	s := strings.TrimSpace(ptype)
	if s == "" {
		return "PHOTO"
	}
	if alias, ok := typeAliases[strings.ToLower(s)]; ok {
		return alias
	}
	return strings.ToUpper(s)
}

// IsCaptionValidatedType reports whether the photo type carries fields
// (MAC, RSN, azimuth degrees) that the validation pipeline should try
// to extract from the caption.
func IsCaptionValidatedType(ptype string) bool {
	c := CanonicalType(ptype)
	return c == "LABELLING" || c == "AZIMUTH"
}

// TypeLabel returns the human label shown in prompts and exports.
func TypeLabel(ptype string) string {
	c := CanonicalType(ptype)
	if pt, ok := typeIndex[c]; ok {
		return pt.Label
	}
	return strings.Title(strings.ToLower(strings.ReplaceAll(c, "_", " ")))
}

// TypePrompt returns the instruction sent to the worker for the next
// photo in the checklist.
func TypePrompt(ptype string) string {
	c := CanonicalType(ptype)
	if pt, ok := typeIndex[c]; ok {
		return pt.Prompt
	}
	if c == "AZIMUTH" {
		return "Please send the Azimuth photo showing a clear compass reading (e.g. 123 deg NE)."
	}
	return "Please send the Label photo with MAC and RSN clearly visible, flat, sharp, no glare."
}

// TypeExampleURL returns the example image for a type, overridable per
// type through the environment.
func TypeExampleURL(ptype string) string {
	c := CanonicalType(ptype)
	if pt, ok := typeIndex[c]; ok {
		if pt.ExampleEnv != "" {
			if u := os.Getenv(pt.ExampleEnv); u != "" {
				return strings.TrimSpace(u)
			}
		}
	}
	return ""
}

// RequiredTypesForSector returns the photo-type codes a sector must
// collect. Every sector currently uses the full default checklist.
func RequiredTypesForSector(sector string) []string {
	codes := make([]string, len(DefaultPhotoTypes))
	for i, pt := range DefaultPhotoTypes {
		codes[i] = pt.Code
	}
	return codes
}

// ChooseActiveSector picks the next sector block to work on: the first
// IN_PROGRESS one, else the first PENDING one, else none.
func ChooseActiveSector(blocks []models.SectorBlock) (models.SectorBlock, bool) {
	for _, b := range blocks {
		if b.Status == models.JobInProgress {
			return b, true
		}
	}
	for _, b := range blocks {
		if b.Status == models.JobPending {
			return b, true
		}
	}
	return models.SectorBlock{}, false
}

// AllSectorsDone reports whether every sector block has finished.
func AllSectorsDone(blocks []models.SectorBlock) bool {
	if len(blocks) == 0 {
		return false
	}
	for _, b := range blocks {
		if b.Status != models.JobDone {
			return false
		}
	}
	return true
}
