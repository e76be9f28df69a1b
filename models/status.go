package models

import (
	"fmt"
	"strings"
)

// JobStatus is a closed enumeration. Wire values are parsed through
// ParseJobStatus so that an unrecognized status surfaces as an error
// instead of silently counting as "not done".
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobDone       JobStatus = "DONE"
	JobFailed     JobStatus = "FAILED"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case JobPending:
		return JobPending, nil
	case JobInProgress:
		return JobInProgress, nil
	case JobDone:
		return JobDone, nil
	case JobFailed:
		return JobFailed, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

func (s JobStatus) String() string {
	return string(s)
}

// PhotoStatus tracks a submitted photo through validation.
type PhotoStatus string

const (
	PhotoProcessing PhotoStatus = "PROCESSING"
	PhotoPass       PhotoStatus = "PASS"
	PhotoFail       PhotoStatus = "FAIL"
)

func ParsePhotoStatus(s string) (PhotoStatus, error) {
	switch PhotoStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case PhotoProcessing:
		return PhotoProcessing, nil
	case PhotoPass:
		return PhotoPass, nil
	case PhotoFail:
		return PhotoFail, nil
	}
	return "", fmt.Errorf("unknown photo status %q", s)
}

func (s PhotoStatus) String() string {
	return string(s)
}
