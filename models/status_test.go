package models

import "testing"

func TestParseJobStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    JobStatus
		wantErr bool
	}{
		{"DONE", JobDone, false},
		{"done", JobDone, false},
		{" In_Progress ", JobInProgress, false},
		{"PENDING", JobPending, false},
		{"FAILED", JobFailed, false},
		{"", "", true},
		{"COMPLETE", "", true},
		{"DONE-ISH", "", true},
	}

	for _, tt := range tests {
		got, err := ParseJobStatus(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseJobStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseJobStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParsePhotoStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    PhotoStatus
		wantErr bool
	}{
		{"pass", PhotoPass, false},
		{"FAIL", PhotoFail, false},
		{"Processing", PhotoProcessing, false},
		{"ok", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParsePhotoStatus(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePhotoStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePhotoStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
