package prototypes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PrototypeSessionState is an opportunistic snapshot of in-progress
// editor state, scoped 1:1 to a prototype version. The payload is
// schema-validated on load; a payload that fails validation is treated
// as absent.
type PrototypeSessionState struct {
	PrototypeID uuid.UUID `gorm:"type:uuid;column:prototype_id;primaryKey" json:"prototype_id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (PrototypeSessionState) TableName() string { return "prototype_session_state" }
