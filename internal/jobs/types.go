// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package jobs

import (
	"fmt"
	"time"
)

// JobType is the closed set of jobs the processor runs.
type JobType string

const (
	JobArtistImport JobType = "artist-import"
	JobBatchImport  JobType = "batch-import"
	JobShowSync     JobType = "show-sync"
	JobCatalogSync  JobType = "catalog-sync"
	JobSetlistSync  JobType = "setlist-sync"
	JobTrending     JobType = "trending"
	JobCleanup      JobType = "cleanup"
	JobHealthCheck  JobType = "health-check"
)

// JobTypes lists every job type.
var JobTypes = []JobType{
	JobArtistImport, JobBatchImport, JobShowSync, JobCatalogSync,
	JobSetlistSync, JobTrending, JobCleanup, JobHealthCheck,
}

// ParseJobType returns the JobType named s.
func ParseJobType(s string) (JobType, error) {
	for _, t := range JobTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown job type: %s", s)
}

// Priority of a job. Informational; the processor runs jobs as they come.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// JobContext describes one job invocation. Handlers receive it by value.
type JobContext struct {
	JobID      string            `json:"jobId"`
	Priority   Priority          `json:"priority"`
	RetryCount int               `json:"retryCount"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// JobResult is what a job reports. JobType, JobID and DurationMs are filled
// in by the processor.
type JobResult struct {
	JobType    JobType `json:"jobType"`
	JobID      string  `json:"jobId"`
	Success    bool    `json:"success"`
	Message    string  `json:"message,omitempty"`
	Data       any     `json:"data,omitempty"`
	Error      string  `json:"error,omitempty"`
	DurationMs int64   `json:"durationMs"`
}

// PipelineResult is returned by Pipeline.Run and by the trigger endpoint.
type PipelineResult struct {
	Success       bool        `json:"success"`
	Timestamp     time.Time   `json:"timestamp"`
	Results       []JobResult `json:"results"`
	TotalDuration int64       `json:"totalDuration"` // Milliseconds
}
