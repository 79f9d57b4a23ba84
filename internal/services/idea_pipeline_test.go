package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
)

func TestPipelineGroupsAndExcludesRejected(t *testing.T) {
	repo := newFakeIdeaRepo()
	cache := realtime.NewViewCache()
	svc := NewPipelineService(nil, testLogger(), repo, cache)

	userID := uuid.New()
	seedIdea(repo, userID, types.IdeaStatusSubmitted)
	seedIdea(repo, userID, types.IdeaStatusApproved)
	seedIdea(repo, userID, types.IdeaStatusPRDDevelopment)
	seedIdea(repo, userID, types.IdeaStatusPrototypeComplete)
	seedIdea(repo, userID, types.IdeaStatusRejected)

	view, aerr := svc.Pipeline(dbctx.New(memberCtx(userID)))
	if aerr != nil {
		t.Fatalf("Pipeline: %v", aerr)
	}

	total := len(view.Submitted) + len(view.Approved) + len(view.PRDDevelopment) + len(view.PrototypeComplete)
	if total != 4 {
		t.Fatalf("active ideas: want=4 got=%d", total)
	}
	if len(view.Submitted) != 1 || len(view.Approved) != 1 || len(view.PRDDevelopment) != 1 || len(view.PrototypeComplete) != 1 {
		t.Fatalf("bucket sizes: %d/%d/%d/%d",
			len(view.Submitted), len(view.Approved), len(view.PRDDevelopment), len(view.PrototypeComplete))
	}
	for _, entry := range view.Submitted {
		if entry.Status == types.IdeaStatusRejected {
			t.Fatalf("rejected idea leaked into pipeline")
		}
	}
}

func TestPipelineDaysInStage(t *testing.T) {
	repo := newFakeIdeaRepo()
	cache := realtime.NewViewCache()
	svc := NewPipelineService(nil, testLogger(), repo, cache)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.(*pipelineService).now = func() time.Time { return now }

	staged := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	withTimestamp := &types.Idea{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		Title:           "a",
		Problem:         "b",
		Solution:        "c",
		Status:          types.IdeaStatusApproved,
		StatusUpdatedAt: &staged,
		CreatedAt:       now.Add(-30 * 24 * time.Hour),
	}
	repo.put(withTimestamp)

	// Never transitioned: stage age falls back to creation time.
	withoutTimestamp := &types.Idea{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Title:     "a",
		Problem:   "b",
		Solution:  "c",
		Status:    types.IdeaStatusSubmitted,
		CreatedAt: now.Add(-3 * 24 * time.Hour),
	}
	repo.put(withoutTimestamp)

	view, aerr := svc.Pipeline(dbctx.New(memberCtx(uuid.New())))
	if aerr != nil {
		t.Fatalf("Pipeline: %v", aerr)
	}
	if len(view.Approved) != 1 || view.Approved[0].DaysInStage != 5 {
		t.Fatalf("approved days in stage: want=5 got=%+v", view.Approved)
	}
	if len(view.Submitted) != 1 || view.Submitted[0].DaysInStage != 3 {
		t.Fatalf("submitted days in stage: want=3 got=%+v", view.Submitted)
	}
}

func TestPipelineUsesCacheUntilInvalidated(t *testing.T) {
	repo := newFakeIdeaRepo()
	cache := realtime.NewViewCache()
	svc := NewPipelineService(nil, testLogger(), repo, cache)

	userID := uuid.New()
	seedIdea(repo, userID, types.IdeaStatusSubmitted)
	dbc := dbctx.New(memberCtx(userID))

	if _, aerr := svc.Pipeline(dbc); aerr != nil {
		t.Fatalf("Pipeline: %v", aerr)
	}
	if _, aerr := svc.Pipeline(dbc); aerr != nil {
		t.Fatalf("Pipeline: %v", aerr)
	}
	if repo.calls != 1 {
		t.Fatalf("store reads with warm cache: want=1 got=%d", repo.calls)
	}

	cache.Invalidate(realtime.ViewIdeaList)
	if _, aerr := svc.Pipeline(dbc); aerr != nil {
		t.Fatalf("Pipeline: %v", aerr)
	}
	if repo.calls != 2 {
		t.Fatalf("store reads after invalidation: want=2 got=%d", repo.calls)
	}
}

func TestMetricsOverviewCountsAndRecent(t *testing.T) {
	repo := newFakeIdeaRepo()
	cache := realtime.NewViewCache()
	svc := NewMetricsService(nil, testLogger(), repo, cache)

	userID := uuid.New()
	seedIdea(repo, userID, types.IdeaStatusSubmitted)
	seedIdea(repo, userID, types.IdeaStatusSubmitted)
	seedIdea(repo, userID, types.IdeaStatusApproved)
	seedIdea(repo, userID, types.IdeaStatusRejected)

	overview, aerr := svc.Overview(dbctx.New(memberCtx(userID)))
	if aerr != nil {
		t.Fatalf("Overview: %v", aerr)
	}
	if overview.CountsByStatus[types.IdeaStatusSubmitted] != 2 {
		t.Fatalf("submitted count: want=2 got=%d", overview.CountsByStatus[types.IdeaStatusSubmitted])
	}
	if overview.TotalActive != 3 {
		t.Fatalf("total active: want=3 got=%d", overview.TotalActive)
	}
	if overview.TotalRejected != 1 {
		t.Fatalf("total rejected: want=1 got=%d", overview.TotalRejected)
	}
	if len(overview.RecentSubmissions) != 4 {
		t.Fatalf("recent submissions: want=4 got=%d", len(overview.RecentSubmissions))
	}
}
