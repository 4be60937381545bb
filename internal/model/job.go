package model

import (
	"time"

	"gorm.io/datatypes"
)

type JobType string

const (
	JobTypeScheduledBacktest JobType = "scheduled_backtest"
	JobTypeDataCleanUp       JobType = "data_clean_up"
)

// Job is a unit of background work. Payload is decoded by the executor
// registered for Type.
type Job struct {
	ID          uint                   `gorm:"primaryKey"`
	Name        string                 `gorm:"type:varchar(255);not null"`
	Description string                 `gorm:"type:text"`
	Type        JobType                `gorm:"type:varchar(50);not null"`
	Payload     datatypes.JSON         `gorm:"type:jsonb;not null"`
	Timeout     int                    `gorm:"default:60"`
	CreatedAt   time.Time              `gorm:"autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"autoUpdateTime"`
	Schedules   []TaskSchedule         `gorm:"foreignKey:JobID"`
	Histories   []TaskExecutionHistory `gorm:"foreignKey:JobID"`
}

func (Job) TableName() string {
	return "jobs"
}

// TimeoutDuration is the execution deadline, Timeout seconds.
func (j Job) TimeoutDuration() time.Duration {
	if j.Timeout <= 0 {
		return 60 * time.Second
	}
	return time.Duration(j.Timeout) * time.Second
}

type GetJobParam struct {
	IDs             []uint                        `json:"ids"`
	IsActive        *bool                         `json:"is_active"`
	Limit           *int                          `json:"limit"`
	WithTaskHistory *GetTaskExecutionHistoryParam `json:"with_task_history"`
}

type GetTaskExecutionHistoryParam struct {
	Limit *int `json:"limit"`
}
