package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideaforge/ideaforge-backend/internal/data/repos"
	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/ctxutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
)

const (
	feedbackMinLen = 20
	feedbackMaxLen = 500
)

type NewIdea struct {
	Title    string `json:"title"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Impact   string `json:"impact"`
}

// IdeaTriageService owns every write to the idea table. Review
// transitions (approve/reject) are admin-only and guarded by a
// conditional update; the forward chain transitions are invoked by the
// PRD and prototype subsystems.
type IdeaTriageService interface {
	Submit(dbc dbctx.Context, input NewIdea) (*types.Idea, *apierr.Error)
	Get(dbc dbctx.Context, ideaID uuid.UUID) (*types.Idea, *apierr.Error)
	ListMine(dbc dbctx.Context) ([]*types.Idea, *apierr.Error)

	Approve(dbc dbctx.Context, ideaID uuid.UUID) (*types.Idea, *apierr.Error)
	Reject(dbc dbctx.Context, ideaID uuid.UUID, feedback string) (*types.Idea, *apierr.Error)

	MarkPRDDevelopment(dbc dbctx.Context, ideaID uuid.UUID) (*types.Idea, *apierr.Error)
	MarkPrototypeComplete(dbc dbctx.Context, ideaID uuid.UUID) (*types.Idea, *apierr.Error)
}

type ideaTriageService struct {
	db    *gorm.DB
	log   *logger.Logger
	ideas repos.IdeaRepo
	bus   realtime.Bus
	now   func() time.Time
}

func NewIdeaTriageService(db *gorm.DB, baseLog *logger.Logger, ideas repos.IdeaRepo, bus realtime.Bus) IdeaTriageService {
	return &ideaTriageService{
		db:    db,
		log:   baseLog.With("service", "IdeaTriageService"),
		ideas: ideas,
		bus:   bus,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// recoverBoundary normalizes panics at the public boundary so callers
// only ever see the taxonomy.
func recoverBoundary(log *logger.Logger, op string, aerr **apierr.Error) {
	if r := recover(); r != nil {
		log.Error("panic recovered at service boundary", "op", op, "panic", r)
		*aerr = apierr.FromPanic(r)
	}
}

func (s *ideaTriageService) Submit(dbc dbctx.Context, input NewIdea) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Submit", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Problem = strings.TrimSpace(input.Problem)
	input.Solution = strings.TrimSpace(input.Solution)
	if input.Title == "" || input.Problem == "" || input.Solution == "" {
		return nil, apierr.Validation("title, problem and solution are required")
	}

	row := &types.Idea{
		ID:       uuid.New(),
		UserID:   rd.UserID,
		Title:    input.Title,
		Problem:  input.Problem,
		Solution: input.Solution,
		Impact:   strings.TrimSpace(input.Impact),
		Status:   types.IdeaStatusSubmitted,
	}
	created, err := s.ideas.Create(dbc, row)
	if err != nil {
		s.log.Error("idea insert failed", "error", err)
		return nil, apierr.DB(err)
	}
	s.publishIdeaEvent(dbc, realtime.OpInsert)
	return created, nil
}

func (s *ideaTriageService) Get(dbc dbctx.Context, ideaID uuid.UUID) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Get", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}
	row, err := s.ideas.GetByID(dbc, ideaID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if row == nil {
		return nil, apierr.NotFound("idea")
	}
	if row.UserID != rd.UserID && !rd.IsAdmin() {
		return nil, apierr.Unauthorized("idea belongs to another user")
	}
	return row, nil
}

func (s *ideaTriageService) ListMine(dbc dbctx.Context) (out []*types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "ListMine", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}
	rows, err := s.ideas.ListByUser(dbc, rd.UserID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	return rows, nil
}

func (s *ideaTriageService) Approve(dbc dbctx.Context, ideaID uuid.UUID) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Approve", &aerr)

	if aerr := s.requireAdmin(dbc); aerr != nil {
		return nil, aerr
	}

	now := s.now()
	return s.transition(dbc, ideaID, types.IdeaStatusSubmitted, map[string]any{
		"status":            types.IdeaStatusApproved,
		"status_updated_at": now,
	})
}

func (s *ideaTriageService) Reject(dbc dbctx.Context, ideaID uuid.UUID, feedback string) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Reject", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if !rd.IsAdmin() {
		return nil, apierr.Unauthorized("admin role required")
	}

	feedback = strings.TrimSpace(feedback)
	if n := utf8.RuneCountInString(feedback); n < feedbackMinLen || n > feedbackMaxLen {
		return nil, apierr.Validation("feedback must be between %d and %d characters", feedbackMinLen, feedbackMaxLen)
	}
	sanitized := sanitizeFeedback(feedback)

	now := s.now()
	return s.transition(dbc, ideaID, types.IdeaStatusSubmitted, map[string]any{
		"status":              types.IdeaStatusRejected,
		"status_updated_at":   now,
		"rejection_feedback":  sanitized,
		"rejected_by_user_id": rd.UserID,
		"rejected_at":         now,
	})
}

func (s *ideaTriageService) MarkPRDDevelopment(dbc dbctx.Context, ideaID uuid.UUID) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "MarkPRDDevelopment", &aerr)

	return s.transition(dbc, ideaID, types.IdeaStatusApproved, map[string]any{
		"status":            types.IdeaStatusPRDDevelopment,
		"status_updated_at": s.now(),
	})
}

func (s *ideaTriageService) MarkPrototypeComplete(dbc dbctx.Context, ideaID uuid.UUID) (idea *types.Idea, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "MarkPrototypeComplete", &aerr)

	return s.transition(dbc, ideaID, types.IdeaStatusPRDDevelopment, map[string]any{
		"status":            types.IdeaStatusPrototypeComplete,
		"status_updated_at": s.now(),
	})
}

// transition performs the guarded conditional update. The WHERE clause
// carries the precondition, so concurrent racers resolve with exactly
// one winner; the loser sees ALREADY_REVIEWED.
func (s *ideaTriageService) transition(dbc dbctx.Context, ideaID uuid.UUID, fromStatus string, updates map[string]any) (*types.Idea, *apierr.Error) {
	matched, err := s.ideas.TransitionStatus(dbc, ideaID, fromStatus, updates)
	if err != nil {
		s.log.Error("status transition failed", "idea_id", ideaID, "from", fromStatus, "error", err)
		return nil, apierr.DB(err)
	}
	if !matched {
		row, gErr := s.ideas.GetByID(dbc, ideaID)
		if gErr != nil {
			return nil, apierr.DB(gErr)
		}
		if row == nil {
			return nil, apierr.NotFound("idea")
		}
		return nil, apierr.AlreadyReviewed()
	}

	s.publishIdeaEvent(dbc, realtime.OpUpdate)

	row, err := s.ideas.GetByID(dbc, ideaID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if row == nil {
		return nil, apierr.NotFound("idea")
	}
	return row, nil
}

func (s *ideaTriageService) requireAdmin(dbc dbctx.Context) *apierr.Error {
	if !ctxutil.GetRequestData(dbc.Ctx).IsAdmin() {
		return apierr.Unauthorized("admin role required")
	}
	return nil
}

// publishIdeaEvent feeds the change stream the realtime bridge
// consumes. Publish failures degrade to stale caches, not errors.
func (s *ideaTriageService) publishIdeaEvent(dbc dbctx.Context, op string) {
	if s.bus == nil {
		return
	}
	ev := realtime.Event{Resource: realtime.ResourceIdea, Op: op, OccurredAt: s.now()}
	if err := s.bus.Publish(dbc.Ctx, ev); err != nil {
		s.log.Warn("idea event publish failed", "op", op, "error", err)
	}
}

// sanitizeFeedback escapes the characters that matter when feedback is
// rendered verbatim in review screens.
func sanitizeFeedback(s string) string {
	r := strings.NewReplacer(
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#x27;",
	)
	return r.Replace(s)
}
