package ideas

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ideaforge/ideaforge-backend/internal/data/repos/testutil"
	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
)

func TestIdeaRepoCreateAndGet(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewIdeaRepo(db, testutil.Logger(t))
	dbc := dbctx.New(ctx).WithTx(tx)

	userID := uuid.New()
	idea := &types.Idea{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    "Realtime anomaly alerts",
		Problem:  "incidents surface too late",
		Solution: "detector pipeline with paging",
		Status:   types.IdeaStatusSubmitted,
	}
	if _, err := repo.Create(dbc, idea); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, idea.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Title != idea.Title {
		t.Fatalf("GetByID: %+v", got)
	}

	// Absence is nil, nil.
	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%+v err=%v", missing, err)
	}
}

func TestIdeaRepoTransitionStatusGuard(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewIdeaRepo(db, testutil.Logger(t))
	dbc := dbctx.New(ctx).WithTx(tx)

	idea := testutil.SeedIdea(t, ctx, tx, uuid.New(), types.IdeaStatusSubmitted)

	now := time.Now().UTC()
	matched, err := repo.TransitionStatus(dbc, idea.ID, types.IdeaStatusSubmitted, map[string]any{
		"status":            types.IdeaStatusApproved,
		"status_updated_at": now,
	})
	if err != nil {
		t.Fatalf("TransitionStatus: %v", err)
	}
	if !matched {
		t.Fatalf("first transition should match")
	}

	// Same precondition again: the row moved on, so no match.
	matched, err = repo.TransitionStatus(dbc, idea.ID, types.IdeaStatusSubmitted, map[string]any{
		"status": types.IdeaStatusRejected,
	})
	if err != nil {
		t.Fatalf("TransitionStatus repeat: %v", err)
	}
	if matched {
		t.Fatalf("stale precondition must not match")
	}

	got, err := repo.GetByID(dbc, idea.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.IdeaStatusApproved {
		t.Fatalf("status: want=%q got=%q", types.IdeaStatusApproved, got.Status)
	}
	if got.StatusUpdatedAt == nil {
		t.Fatalf("status_updated_at not written")
	}

	// Unknown id never matches.
	matched, err = repo.TransitionStatus(dbc, uuid.New(), types.IdeaStatusSubmitted, map[string]any{
		"status": types.IdeaStatusApproved,
	})
	if err != nil || matched {
		t.Fatalf("missing id: matched=%v err=%v", matched, err)
	}
}

func TestIdeaRepoListActiveExcludesRejected(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewIdeaRepo(db, testutil.Logger(t))
	dbc := dbctx.New(ctx).WithTx(tx)

	userID := uuid.New()
	testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusSubmitted)
	testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusApproved)
	rejected := testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusRejected)

	rows, err := repo.ListActive(dbc)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	for _, row := range rows {
		if row.ID == rejected.ID {
			t.Fatalf("rejected idea leaked into active list")
		}
	}
}

func TestIdeaRepoCountByStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	repo := NewIdeaRepo(db, testutil.Logger(t))
	dbc := dbctx.New(ctx).WithTx(tx)

	userID := uuid.New()
	testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusSubmitted)
	testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusSubmitted)
	testutil.SeedIdea(t, ctx, tx, userID, types.IdeaStatusApproved)

	counts, err := repo.CountByStatus(dbc)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[types.IdeaStatusSubmitted] < 2 {
		t.Fatalf("submitted count: want>=2 got=%d", counts[types.IdeaStatusSubmitted])
	}
	if counts[types.IdeaStatusApproved] < 1 {
		t.Fatalf("approved count: want>=1 got=%d", counts[types.IdeaStatusApproved])
	}
}
