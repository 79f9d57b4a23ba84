package repos

import (
	"github.com/ideaforge/ideaforge-backend/internal/data/repos/ideas"
	"github.com/ideaforge/ideaforge-backend/internal/data/repos/prototypes"
)

type IdeaRepo = ideas.IdeaRepo
type PrototypeRepo = prototypes.PrototypeRepo
type SessionStateRepo = prototypes.SessionStateRepo

var (
	NewIdeaRepo         = ideas.NewIdeaRepo
	NewPrototypeRepo    = prototypes.NewPrototypeRepo
	NewSessionStateRepo = prototypes.NewSessionStateRepo
)
