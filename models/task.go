package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskDetails is the display metadata shared by catalog tasks and the
// per-user social reward rows copied from them.
type TaskDetails struct {
	BtnText      string  `json:"btnText"`
	TaskText     string  `json:"taskText"`
	TaskPoints   float64 `gorm:"not null;default:0" json:"taskPoints"`
	TaskCategory string  `json:"taskCategory"`
	TaskStatus   string  `json:"taskStatus"`
	TaskURL      string  `json:"taskUrl"`
}

// Task is an entry of the master social task catalog.
type Task struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	ClaimKey string `gorm:"uniqueIndex;not null" json:"claimTreshold"`

	TaskDetails `gorm:"embedded"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
