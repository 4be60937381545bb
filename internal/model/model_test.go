package model

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskSchedule_IsDue(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		schedule TaskSchedule
		want     bool
	}{
		{"inactive", TaskSchedule{IsActive: false}, false},
		{"never planned", TaskSchedule{IsActive: true}, true},
		{"in the past", TaskSchedule{IsActive: true, NextExecution: sql.NullTime{Time: now.Add(-time.Minute), Valid: true}}, true},
		{"exactly now", TaskSchedule{IsActive: true, NextExecution: sql.NullTime{Time: now, Valid: true}}, true},
		{"in the future", TaskSchedule{IsActive: true, NextExecution: sql.NullTime{Time: now.Add(time.Minute), Valid: true}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.IsDue(now))
		})
	}
}

func TestTaskExecutionHistory_Finish(t *testing.T) {
	now := time.Now()

	ok := &TaskExecutionHistory{Status: StatusRunning}
	ok.Finish(now, StatusCompleted, "3 runs", nil)
	assert.Equal(t, StatusCompleted, ok.Status)
	assert.True(t, ok.CompletedAt.Valid)
	assert.Equal(t, "3 runs", ok.Output.String)
	assert.False(t, ok.ErrorMessage.Valid)
	assert.Equal(t, int32(0), ok.ExitCode.Int32)

	failed := &TaskExecutionHistory{Status: StatusRunning}
	failed.Finish(now, StatusFailed, "", errors.New("boom"))
	assert.Equal(t, "boom", failed.ErrorMessage.String)
	assert.False(t, failed.Output.Valid)
	assert.Equal(t, int32(1), failed.ExitCode.Int32)
}

func TestJob_TimeoutDuration(t *testing.T) {
	assert.Equal(t, 60*time.Second, Job{}.TimeoutDuration())
	assert.Equal(t, 5*time.Second, Job{Timeout: 5}.TimeoutDuration())
}
