package models

import "github.com/pkg/errors"

const (
	ENQUEUED_JOB    = "enqueued"
	IN_PROGRESS_JOB = "in-progress"
	SUCCESSFUL_JOB  = "successful"
	DEAD_JOB        = "dead"
	SCHEDULED_JOB   = "scheduled"
)

// JOB_STATUSES lists the seeded statuses in the order a job moves through them.
var JOB_STATUSES = []string{SCHEDULED_JOB, ENQUEUED_JOB, IN_PROGRESS_JOB, SUCCESSFUL_JOB, DEAD_JOB}

var ErrJobStatusesNotSeeded = errors.New("job statuses are not seeded, run the migrations")

func IsJobStatus(name string) bool {
	for _, status := range JOB_STATUSES {
		if status == name {
			return true
		}
	}
	return false
}

type JobsStats struct {
	EnqueuedJobCount   int64 `json:"enqueued_job_count"`
	InProgressJobCount int64 `json:"in_progress_job_count"`
	SuccessfulJobCount int64 `json:"successful_job_count"`
	DeadJobCount       int64 `json:"dead_job_count"`
	ScheduledJobCount  int64 `json:"scheduled_job_count"`
}

func (stats *JobsStats) counter(status string) *int64 {
	switch status {
	case ENQUEUED_JOB:
		return &stats.EnqueuedJobCount
	case IN_PROGRESS_JOB:
		return &stats.InProgressJobCount
	case SUCCESSFUL_JOB:
		return &stats.SuccessfulJobCount
	case DEAD_JOB:
		return &stats.DeadJobCount
	case SCHEDULED_JOB:
		return &stats.ScheduledJobCount
	}
	return nil
}

type JobStatus struct {
	ID   uint   `json:"id" gorm:"primarykey"`
	Name string `json:"name" gorm:"size:20;not null;unique"`
}

func FindJobStatus(name string) (*JobStatus, error) {
	jobStatus := JobStatus{}
	err := db.Select("id", "name").First(&jobStatus, "name = ?", name).Error
	if err != nil {
		return nil, err
	}

	return &jobStatus, nil
}

// jobStatusIDs resolves status names to their seeded ids in one query.
func jobStatusIDs(names ...string) (map[string]uint, error) {
	statuses := []JobStatus{}
	err := db.Where("name IN ?", names).Find(&statuses).Error
	if err != nil {
		return nil, err
	}

	if len(statuses) != len(names) {
		return nil, ErrJobStatusesNotSeeded
	}

	ids := make(map[string]uint, len(statuses))
	for _, status := range statuses {
		ids[status.Name] = status.ID
	}
	return ids, nil
}

type jobStatusCount struct {
	Name  string
	Total int64
}

// CurrentJobsStats counts the jobs in every status with a single grouped query,
// statuses without jobs count zero.
func CurrentJobsStats() (*JobsStats, error) {
	counts := []jobStatusCount{}
	err := db.Model(&JobStatus{}).
		Select("job_statuses.name AS name, COUNT(jobs.id) AS total").
		Joins("LEFT JOIN jobs ON jobs.job_status_id = job_statuses.id").
		Group("job_statuses.name").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	stats := JobsStats{}
	for _, count := range counts {
		if counter := stats.counter(count.Name); counter != nil {
			*counter = count.Total
		}
	}

	return &stats, nil
}
