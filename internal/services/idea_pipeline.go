package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/ideaforge/ideaforge-backend/internal/data/repos"
	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
)

// PipelineIdea is an idea row annotated with how long it has sat in its
// current stage. DaysInStage is computed at read time, never stored.
type PipelineIdea struct {
	*types.Idea
	DaysInStage int `json:"days_in_stage"`
}

// PipelineView groups the active ideas into the four workflow stages,
// ordered by stage progression. Rejected ideas never appear.
type PipelineView struct {
	Submitted         []PipelineIdea `json:"submitted"`
	Approved          []PipelineIdea `json:"approved"`
	PRDDevelopment    []PipelineIdea `json:"prd_development"`
	PrototypeComplete []PipelineIdea `json:"prototype_complete"`
	GeneratedAt       time.Time      `json:"generated_at"`
}

type PipelineService interface {
	Pipeline(dbc dbctx.Context) (*PipelineView, *apierr.Error)
}

type pipelineService struct {
	db    *gorm.DB
	log   *logger.Logger
	ideas repos.IdeaRepo
	cache *realtime.ViewCache
	now   func() time.Time
}

func NewPipelineService(db *gorm.DB, baseLog *logger.Logger, ideaRepo repos.IdeaRepo, cache *realtime.ViewCache) PipelineService {
	return &pipelineService{
		db:    db,
		log:   baseLog.With("service", "PipelineService"),
		ideas: ideaRepo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Pipeline caches the active idea rows, not the rendered view:
// days-in-stage must reflect the clock at read time, so the annotation
// happens on every call even on a cache hit.
func (s *pipelineService) Pipeline(dbc dbctx.Context) (view *PipelineView, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Pipeline", &aerr)

	rows, aerr := s.activeIdeas(dbc)
	if aerr != nil {
		return nil, aerr
	}

	now := s.now()
	view = &PipelineView{
		Submitted:         []PipelineIdea{},
		Approved:          []PipelineIdea{},
		PRDDevelopment:    []PipelineIdea{},
		PrototypeComplete: []PipelineIdea{},
		GeneratedAt:       now,
	}
	for _, row := range rows {
		entry := PipelineIdea{Idea: row, DaysInStage: row.DaysInStage(now)}
		switch row.Status {
		case types.IdeaStatusSubmitted:
			view.Submitted = append(view.Submitted, entry)
		case types.IdeaStatusApproved:
			view.Approved = append(view.Approved, entry)
		case types.IdeaStatusPRDDevelopment:
			view.PRDDevelopment = append(view.PRDDevelopment, entry)
		case types.IdeaStatusPrototypeComplete:
			view.PrototypeComplete = append(view.PrototypeComplete, entry)
		default:
			s.log.Warn("idea with unexpected status excluded from pipeline", "idea_id", row.ID, "status", row.Status)
		}
	}
	return view, nil
}

func (s *pipelineService) activeIdeas(dbc dbctx.Context) ([]*types.Idea, *apierr.Error) {
	if cached, ok := s.cache.Get(realtime.ViewIdeaList); ok {
		if rows, ok := cached.([]*types.Idea); ok {
			return rows, nil
		}
	}
	rows, err := s.ideas.ListActive(dbc)
	if err != nil {
		s.log.Error("active idea query failed", "error", err)
		return nil, apierr.DB(err)
	}
	s.cache.Put(realtime.ViewIdeaList, rows)
	return rows, nil
}
