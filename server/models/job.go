package models

import (
	"time"

	"github.com/pkg/errors"
)

const JOIN_JOB_STATUS_QUERY = "INNER JOIN job_statuses ON job_statuses.id = jobs.job_status_id AND job_statuses.name = ?"

var ErrDuplicateJob = errors.New("job with the given name already exists in queue")

// Job is one unit of background work. Jobs move enqueued -> in-progress ->
// successful | dead, failed jobs go back to enqueued until they run out of tries.
type Job struct {
	ID          uint       `json:"id" gorm:"primarykey"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Fails       int        `json:"fails"`
	Name        string     `json:"name" gorm:"size:255;not null;index"`
	Handler     string     `json:"handler" gorm:"size:100;not null"`
	Args        string     `json:"args" gorm:"type:text"`
	LastError   string     `json:"last_error" gorm:"type:text"`
	Claimed     bool       `json:"claimed" gorm:"not null;default:false"`
	EnqueuedAt  *time.Time `json:"enqueued_at"`
	RunAt       *time.Time `json:"run_at"`
	JobStatusID uint       `json:"job_status_id" gorm:"index"`
	JobStatus   *JobStatus `json:"status,omitempty"`
}

// MarkAsClaimed moves an unclaimed job to in-progress. It reports false when
// another worker got to the job first.
func (job *Job) MarkAsClaimed() (bool, error) {
	inProgressStatus, err := FindJobStatus(IN_PROGRESS_JOB)
	if err != nil {
		return false, err
	}

	res := db.Model(&Job{}).Where("id = ? AND claimed = ?", job.ID, false).Updates(map[string]interface{}{
		"claimed":       true,
		"job_status_id": inProgressStatus.ID,
	})

	if res.Error != nil {
		return false, res.Error
	}

	if res.RowsAffected == 0 {
		return false, nil
	}

	job.Claimed = true
	job.JobStatusID = inProgressStatus.ID
	return true, nil
}

// MoveTo unclaims the job and puts it in status, writing changes alongside.
// The move only applies while the job still has the status it was loaded
// with, so a worker and a requeuer never both settle the same run.
func (job *Job) MoveTo(status string, changes map[string]interface{}) (bool, error) {
	jobStatus, err := FindJobStatus(status)
	if err != nil {
		return false, err
	}

	update := map[string]interface{}{}
	for column, value := range changes {
		update[column] = value
	}
	update["claimed"] = false
	update["job_status_id"] = jobStatus.ID

	res := db.Model(&Job{}).Where("id = ? AND job_status_id = ?", job.ID, job.JobStatusID).Updates(update)
	if res.Error != nil {
		return false, res.Error
	}

	if res.RowsAffected == 0 {
		return false, nil
	}

	job.Claimed = false
	job.JobStatusID = jobStatus.ID
	job.JobStatus = jobStatus
	return true, nil
}

func (job *Job) Update(data map[string]interface{}) error {
	return db.Model(&Job{ID: job.ID}).Updates(data).Error
}

// CreateUniqueJobByName queues a job unless one with the same name is already
// enqueued, scheduled or in-progress. A non nil runAt schedules the job instead.
func CreateUniqueJobByName(name string, handler string, args string, runAt *time.Time) error {
	statusIDs, err := jobStatusIDs(ENQUEUED_JOB, IN_PROGRESS_JOB, SCHEDULED_JOB)
	if err != nil {
		return err
	}

	var count int64
	err = db.Model(&Job{}).
		Where("name = ? AND job_status_id IN ?", name,
			[]uint{statusIDs[ENQUEUED_JOB], statusIDs[IN_PROGRESS_JOB], statusIDs[SCHEDULED_JOB]}).
		Count(&count).Error
	if err != nil {
		return err
	}

	if count > 0 {
		return ErrDuplicateJob
	}

	now := time.Now()
	job := Job{
		Name:        name,
		Handler:     handler,
		Args:        args,
		EnqueuedAt:  &now,
		JobStatusID: statusIDs[ENQUEUED_JOB],
	}

	if runAt != nil && runAt.After(now) {
		job.EnqueuedAt = nil
		job.RunAt = runAt
		job.JobStatusID = statusIDs[SCHEDULED_JOB]
	}

	return db.Create(&job).Error
}

// NextJob returns the oldest job with the given status & claim state.
func NextJob(status string, claimed bool) (*Job, error) {
	job := Job{}
	err := db.Joins(JOIN_JOB_STATUS_QUERY, status).
		Where("jobs.claimed = ?", claimed).
		Order("jobs.id").First(&job).Error
	if err != nil {
		return nil, err
	}

	return &job, nil
}

// StuckJobs returns up to limit in-progress jobs nobody has touched since
// cutoff, least recently updated first.
func StuckJobs(cutoff time.Time, limit int) ([]Job, error) {
	jobs := []Job{}
	err := db.Joins(JOIN_JOB_STATUS_QUERY, IN_PROGRESS_JOB).
		Where("jobs.updated_at <= ?", cutoff).
		Order("jobs.updated_at").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

// DueScheduledJobs returns up to limit scheduled jobs whose run time is at or
// before now, earliest first.
func DueScheduledJobs(now time.Time, limit int) ([]Job, error) {
	jobs := []Job{}
	err := db.Joins(JOIN_JOB_STATUS_QUERY, SCHEDULED_JOB).
		Where("jobs.run_at <= ?", now).
		Order("jobs.run_at").Limit(limit).Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func FetchJobsByStatus(status string, page int) ([]Job, *Paging, error) {
	var total int64
	jobs := []Job{}

	err := db.Joins(JOIN_JOB_STATUS_QUERY, status).Model(&Job{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Preload("JobStatus").Order("jobs.id desc").
		Joins(JOIN_JOB_STATUS_QUERY, status).Find(&jobs).Error
	if err != nil {
		return nil, nil, err
	}

	return jobs, newPaging(page, MAX_PAGE_SIZE, total), nil
}

func FetchJobs(page int) ([]Job, *Paging, error) {
	var total int64
	jobs := []Job{}

	err := db.Model(&Job{}).Count(&total).Error
	if err != nil {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, MAX_PAGE_SIZE)).
		Preload("JobStatus").Order("jobs.id desc").Find(&jobs).Error
	if err != nil {
		return nil, nil, err
	}

	return jobs, newPaging(page, MAX_PAGE_SIZE, total), nil
}
