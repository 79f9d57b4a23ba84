package ideas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Idea statuses. rejected is terminal; the rest form a forward-only
// chain submitted -> approved -> prd_development -> prototype_complete.
const (
	StatusSubmitted         = "submitted"
	StatusApproved          = "approved"
	StatusPRDDevelopment    = "prd_development"
	StatusPrototypeComplete = "prototype_complete"
	StatusRejected          = "rejected"
)

// ActiveStatuses are the pipeline buckets, in triage display order.
var ActiveStatuses = []string{
	StatusSubmitted,
	StatusApproved,
	StatusPRDDevelopment,
	StatusPrototypeComplete,
}

type Idea struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Title    string `gorm:"not null;column:title" json:"title"`
	Problem  string `gorm:"not null;column:problem;type:text" json:"problem"`
	Solution string `gorm:"not null;column:solution;type:text" json:"solution"`
	Impact   string `gorm:"column:impact;type:text" json:"impact"`

	Status string `gorm:"column:status;not null;default:'submitted';index" json:"status"`

	// StatusUpdatedAt is nil until the first transition; readers fall
	// back to CreatedAt.
	StatusUpdatedAt *time.Time `gorm:"column:status_updated_at;index" json:"status_updated_at,omitempty"`

	// Rejection metadata, meaningful only when Status == rejected.
	RejectionFeedback *string    `gorm:"column:rejection_feedback;type:text" json:"rejection_feedback,omitempty"`
	RejectedByUserID  *uuid.UUID `gorm:"type:uuid;column:rejected_by_user_id" json:"rejected_by_user_id,omitempty"`
	RejectedAt        *time.Time `gorm:"column:rejected_at" json:"rejected_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Idea) TableName() string { return "idea" }

// StageStartedAt is the instant the current stage began.
func (i *Idea) StageStartedAt() time.Time {
	if i.StatusUpdatedAt != nil {
		return *i.StatusUpdatedAt
	}
	return i.CreatedAt
}

// DaysInStage is whole days since the current stage began, never
// negative, recomputed per read.
func (i *Idea) DaysInStage(now time.Time) int {
	d := now.Sub(i.StageStartedAt())
	if d < 0 {
		return 0
	}
	return int(d.Hours() / 24)
}
