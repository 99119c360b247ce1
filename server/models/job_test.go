package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUniqueJobByName(t *testing.T) {
	InitializeTestDb()

	err := CreateUniqueJobByName("reminders_2024-07-14", "send_event_reminders", "{}", nil)
	require.Nil(t, err)

	err = CreateUniqueJobByName("reminders_2024-07-14", "send_event_reminders", "{}", nil)
	assert.Equal(t, ErrDuplicateJob, err)

	job, err := NextJob(ENQUEUED_JOB, false)
	require.Nil(t, err)
	assert.Equal(t, "send_event_reminders", job.Handler)

	claimed, err := job.MarkAsClaimed()
	require.Nil(t, err)
	assert.True(t, claimed)

	claimed, err = job.MarkAsClaimed()
	require.Nil(t, err)
	assert.False(t, claimed, "a job can only be claimed once")

	stats, err := CurrentJobsStats()
	require.Nil(t, err)
	assert.Equal(t, int64(0), stats.EnqueuedJobCount)
	assert.Equal(t, int64(1), stats.InProgressJobCount)
}

func TestScheduledJobs(t *testing.T) {
	InitializeTestDb()

	runAt := time.Now().Add(time.Hour)
	err := CreateUniqueJobByName("later", "noop", "{}", &runAt)
	require.Nil(t, err)

	due, err := DueScheduledJobs(time.Now(), 10)
	require.Nil(t, err)
	assert.Empty(t, due, "job should not be due yet")

	due, err = DueScheduledJobs(runAt.Add(time.Minute), 10)
	require.Nil(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "later", due[0].Name)

	jobs, paging, err := FetchJobsByStatus(SCHEDULED_JOB, 1)
	require.Nil(t, err)
	assert.Len(t, jobs, 1)
	assert.Equal(t, int64(1), paging.Total)
}

func TestMoveToOnlyAppliesFromLoadedStatus(t *testing.T) {
	InitializeTestDb()

	require.Nil(t, CreateUniqueJobByName("reminders_2024-07-15", "send_event_reminders", "{}", nil))

	job, err := NextJob(ENQUEUED_JOB, false)
	require.Nil(t, err)

	claimed, err := job.MarkAsClaimed()
	require.Nil(t, err)
	require.True(t, claimed)

	stale := *job

	moved, err := job.MoveTo(SUCCESSFUL_JOB, nil)
	require.Nil(t, err)
	assert.True(t, moved)
	assert.False(t, job.Claimed)
	assert.Equal(t, SUCCESSFUL_JOB, job.JobStatus.Name)

	moved, err = stale.MoveTo(DEAD_JOB, map[string]interface{}{"last_error": "too late"})
	require.Nil(t, err)
	assert.False(t, moved, "the job already left in-progress")

	stats, err := CurrentJobsStats()
	require.Nil(t, err)
	assert.Equal(t, int64(1), stats.SuccessfulJobCount)
	assert.Equal(t, int64(0), stats.DeadJobCount)
}

func TestStuckJobs(t *testing.T) {
	InitializeTestDb()

	require.Nil(t, CreateUniqueJobByName("reminders_2024-07-16", "send_event_reminders", "{}", nil))
	require.Nil(t, CreateUniqueJobByName("reminders_2024-07-17", "send_event_reminders", "{}", nil))

	job, err := NextJob(ENQUEUED_JOB, false)
	require.Nil(t, err)
	_, err = job.MarkAsClaimed()
	require.Nil(t, err)

	stuck, err := StuckJobs(time.Now().Add(-time.Hour), 10)
	require.Nil(t, err)
	assert.Empty(t, stuck)

	stuck, err = StuckJobs(time.Now().Add(time.Hour), 10)
	require.Nil(t, err)
	require.Len(t, stuck, 1, "enqueued jobs are never stuck")
	assert.Equal(t, job.ID, stuck[0].ID)
}

func TestJobStatusNames(t *testing.T) {
	for _, status := range JOB_STATUSES {
		assert.True(t, IsJobStatus(status), status)
	}
	assert.False(t, IsJobStatus("bogus"))
}
