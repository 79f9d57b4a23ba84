package prototypes

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prototype generation statuses. ready and failed are terminal for a
// single generation request.
const (
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Prototype is one version in a PRD's lineage. Rows are append-only
// once ready; refinement and restore always produce a new version.
type Prototype struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PRDID  uuid.UUID `gorm:"type:uuid;column:prd_id;not null;index;uniqueIndex:uniq_prototype_prd_version,priority:1" json:"prd_id"`
	IdeaID uuid.UUID `gorm:"type:uuid;column:idea_id;not null;index" json:"idea_id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	// Version is unique within the PRD lineage and strictly increasing;
	// assignment happens inside the same transaction as the insert.
	Version int `gorm:"column:version;not null;uniqueIndex:uniq_prototype_prd_version,priority:2" json:"version"`

	Status string `gorm:"column:status;not null;default:'generating';index" json:"status"`

	// URL is the live preview location; nil while generating or failed.
	URL *string `gorm:"column:url;type:text" json:"url,omitempty"`

	// Code holds the generated source: {"file": "<contents>"} for a
	// single-file prototype, or a path -> contents object for projects.
	Code datatypes.JSON `gorm:"column:code;type:jsonb" json:"code,omitempty"`

	// RefinementPrompt is nil for the first version of a lineage.
	RefinementPrompt *string `gorm:"column:refinement_prompt;type:text" json:"refinement_prompt,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Prototype) TableName() string { return "prototype" }

// CodeFiles decodes Code into a path -> contents map. A single-file
// payload comes back under the "file" key.
func (p *Prototype) CodeFiles() (map[string]string, error) {
	if len(p.Code) == 0 {
		return nil, nil
	}
	var files map[string]string
	if err := json.Unmarshal(p.Code, &files); err == nil {
		return files, nil
	}
	var single string
	if err := json.Unmarshal(p.Code, &single); err != nil {
		return nil, err
	}
	return map[string]string{"file": single}, nil
}
