package api

import "clipmato/internal/progress"

// UploadResponse is returned after an upload is accepted.
type UploadResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// SelectTitleRequest chooses the published title of a record.
type SelectTitleRequest struct {
	SelectedTitle string `json:"selected_title" validate:"required,max=300"`
}

// ScheduleRequest sets the posting time and targets of one record.
// ScheduleTime accepts RFC3339 or a zone-less "2006-01-02T15:04" value,
// which is read as UTC.
type ScheduleRequest struct {
	ScheduleTime   string   `json:"schedule_time" validate:"required,timestamp"`
	PublishTargets []string `json:"publish_targets" validate:"dive,required"`
}

// AutoScheduleRequest schedules every unscheduled record. Blank fields use
// the configured defaults.
type AutoScheduleRequest struct {
	Cadence string `json:"cadence" validate:"omitempty,oneof=daily weekly every_n"`
	NDays   int    `json:"n_days" validate:"gte=0,required_if=Cadence every_n"`
}

// AutoScheduleResponse lists the applied posting times by record id.
type AutoScheduleResponse struct {
	Schedule map[string]string `json:"schedule"`
}

// RecordListResponse wraps records joined with their live progress.
type RecordListResponse struct {
	Records []progress.JobView `json:"records"`
}

// RemoveResponse describes what a record removal deleted.
type RemoveResponse struct {
	ID           string   `json:"id"`
	RemovedFiles []string `json:"removed_files"`
}

// JobCounts summarizes stored and in-flight jobs.
type JobCounts struct {
	Active    int `json:"active"`
	Total     int `json:"total"`
	Failed    int `json:"failed"`
	Scheduled int `json:"scheduled"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult reports one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	MetadataFile string             `json:"metadata_file"`
	LockFilePath string             `json:"lock_file_path"`
	Jobs         JobCounts          `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies"`
	Checks       []CheckResult      `json:"checks"`
	StageHealth  []StageHealth      `json:"stage_health"`
}
