package services

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip open: %v", err)
	}
	out := map[string][]byte{}
	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			t.Fatalf("zip entry %s: %v", zf.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[zf.Name] = b
	}
	return out
}

func TestBuildJobZip(t *testing.T) {
	photos := []BundlePhoto{
		{PhotoType: "TILT", Sector: "Sec2", ContentType: "image/jpeg", Data: []byte("jpeg-bytes")},
		{PhotoType: "ROXTEC", Sector: "", ContentType: "image/png", Data: []byte("png-bytes")},
		{PhotoType: "CLUTTER", Sector: "Sec2", ContentType: "image/jpeg", Data: nil},
	}

	data, err := BuildJobZip("Sec2", photos)
	if err != nil {
		t.Fatalf("BuildJobZip: %v", err)
	}
	entries := readZip(t, data)

	if got, ok := entries["Sec2/sec2_tilt.jpg"]; !ok || string(got) != "jpeg-bytes" {
		t.Errorf("tilt entry missing or wrong: %v", entries)
	}
	// Photo without its own sector inherits the job's.
	if _, ok := entries["Sec2/sec2_roxtec.png"]; !ok {
		t.Errorf("roxtec entry missing: %v", entries)
	}
	if got, ok := entries["Sec2/sec2_clutter_MISSING.txt"]; !ok || string(got) != "Missing or inaccessible image" {
		t.Errorf("missing placeholder absent or wrong: %v", entries)
	}
}

func TestBuildJobZipUnknownSector(t *testing.T) {
	photos := []BundlePhoto{
		{PhotoType: "label", Sector: "north-2", ContentType: "image/webp", Data: []byte("x")},
	}
	data, err := BuildJobZip("north-2", photos)
	if err != nil {
		t.Fatalf("BuildJobZip: %v", err)
	}
	entries := readZip(t, data)
	if _, ok := entries["Unknown/north-2_label.webp"]; !ok {
		t.Errorf("unknown-sector entry missing: %v", entries)
	}
}

func TestBuildJobZipGroupsBySector(t *testing.T) {
	photos := []BundlePhoto{
		{PhotoType: "LABEL", Sector: "Sec1", ContentType: "image/jpeg", Data: []byte("a")},
		{PhotoType: "LABEL", Sector: "Sec3", ContentType: "image/jpeg", Data: []byte("b")},
	}
	data, err := BuildJobZip("", photos)
	if err != nil {
		t.Fatalf("BuildJobZip: %v", err)
	}
	entries := readZip(t, data)
	if _, ok := entries["Sec1/sec1_labelling.jpg"]; !ok {
		t.Errorf("Sec1 entry missing: %v", entries)
	}
	if _, ok := entries["Sec3/sec3_labelling.jpg"]; !ok {
		t.Errorf("Sec3 entry missing: %v", entries)
	}
}

func TestBuildJobZipEmpty(t *testing.T) {
	data, err := BuildJobZip("Sec1", nil)
	if err != nil {
		t.Fatalf("BuildJobZip: %v", err)
	}
	if entries := readZip(t, data); len(entries) != 0 {
		t.Errorf("expected empty archive, got %v", entries)
	}
}
