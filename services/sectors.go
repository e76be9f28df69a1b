package services

import (
	"fmt"
	"strconv"
	"strings"
)

// Legacy alias names still used by some field crews.
var sectorAliases = map[string]int{
	"alpha": 1,
	"beta":  2,
	"gamma": 3,
}

// NormalizeSector maps the free-form sector labels seen in the wild
// onto the canonical "Sec<n>" space: known aliases ("alpha", "beta",
// "gamma"), a prefixed numeric form ("sec3"), a signed numeric form
// ("-2"), or a bare integer ("1"). Labels that resolve to sector 0 or
// do not parse at all pass through unchanged.
func NormalizeSector(raw string) string {
	trimmed := strings.TrimSpace(raw)
	s := strings.ToLower(trimmed)
	if s == "" {
		return ""
	}

	n := 0
	if v, ok := sectorAliases[s]; ok {
		n = v
	} else if rest, ok := strings.CutPrefix(s, "sec"); ok {
		if v, err := strconv.Atoi(rest); err == nil {
			n = v
		}
	} else if v, err := strconv.Atoi(s); err == nil {
		n = v
	}
	if n < 0 {
		n = -n
	}
	if n == 0 {
		return trimmed
	}
	return fmt.Sprintf("Sec%d", n)
}

// SectorNumber extracts n from a canonical "Sec<n>" label.
func SectorNumber(canonical string) (int, bool) {
	rest, ok := strings.CutPrefix(canonical, "Sec")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
