package services

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

// BundlePhoto is one photo to pack into a job archive.
type BundlePhoto struct {
	PhotoType   string
	Sector      string
	ContentType string
	Data        []byte
}

func extForContentType(ct string) string {
	switch strings.ToLower(ct) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	}
	return ".jpg"
}

func bundleFolder(sector string) string {
	canonical := NormalizeSector(sector)
	if _, ok := SectorNumber(canonical); ok {
		return canonical
	}
	return "Unknown"
}

// BuildJobZip packs a job's photos into a deflated archive laid out as
// Sec<n>/sec<n>_<type>.<ext>. A photo whose bytes are gone is replaced
// by a _MISSING.txt placeholder so the archive still accounts for the
// full checklist.
func BuildJobZip(jobSector string, photos []BundlePhoto) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, p := range photos {
		sector := p.Sector
		if sector == "" {
			sector = jobSector
		}
		folder := bundleFolder(sector)
		secLabel := strings.ToLower(NormalizeSector(sector))
		base := strings.ToLower(CanonicalType(p.PhotoType))
		ext := extForContentType(p.ContentType)
		name := fmt.Sprintf("%s/%s_%s%s", folder, secLabel, base, ext)

		if len(p.Data) == 0 {
			missing := strings.TrimSuffix(name, ext) + "_MISSING.txt"
			w, err := zw.Create(missing)
			if err != nil {
				return nil, err
			}
			if _, err := w.Write([]byte("Missing or inaccessible image")); err != nil {
				return nil, err
			}
			continue
		}

		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.Data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
