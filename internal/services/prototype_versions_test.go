package services

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
)

func seedReadyVersion(t *testing.T, repo *fakePrototypeRepo, prdID, ideaID, owner uuid.UUID, code string) *types.Prototype {
	t.Helper()
	url := "https://previews.test/seed"
	row := &types.Prototype{
		PRDID:  prdID,
		IdeaID: ideaID,
		UserID: owner,
		Status: types.PrototypeStatusReady,
		URL:    &url,
		Code:   datatypes.JSON([]byte(code)),
	}
	if _, err := repo.CreateNextVersion(dbctx.New(memberCtx(owner)), row); err != nil {
		t.Fatalf("seed version: %v", err)
	}
	return row
}

func TestRestoreCopiesIntoNewHeadVersion(t *testing.T) {
	repo := newFakePrototypeRepo()
	bus := &fakeBus{}
	svc := NewVersionService(nil, testLogger(), repo, bus)

	owner := uuid.New()
	prdID := uuid.New()
	ideaID := uuid.New()

	v1 := seedReadyVersion(t, repo, prdID, ideaID, owner, `{"app.jsx":"v1"}`)
	seedReadyVersion(t, repo, prdID, ideaID, owner, `{"app.jsx":"v2"}`)

	dbc := dbctx.New(memberCtx(owner))
	restored, aerr := svc.Restore(dbc, v1.ID)
	if aerr != nil {
		t.Fatalf("Restore: %v", aerr)
	}
	if restored.Version != 3 {
		t.Fatalf("restored version: want=3 got=%d", restored.Version)
	}
	if string(restored.Code) != `{"app.jsx":"v1"}` {
		t.Fatalf("restored code: %s", restored.Code)
	}
	if restored.RefinementPrompt == nil || *restored.RefinementPrompt != "Restored from v1" {
		t.Fatalf("restore provenance: %v", restored.RefinementPrompt)
	}
	if restored.Status != types.PrototypeStatusReady {
		t.Fatalf("restored status: %q", restored.Status)
	}

	// Source rows are untouched; history grows by one.
	history, aerr := svc.VersionHistory(dbc, prdID)
	if aerr != nil {
		t.Fatalf("VersionHistory: %v", aerr)
	}
	if len(history) != 3 {
		t.Fatalf("history length: want=3 got=%d", len(history))
	}
	if history[0].Version != 3 || history[2].Version != 1 {
		t.Fatalf("history order: %d..%d", history[0].Version, history[len(history)-1].Version)
	}
	if bus.count() != 1 {
		t.Fatalf("published events: want=1 got=%d", bus.count())
	}
}

func TestRestoreRejectsNonReadyAndForeignVersions(t *testing.T) {
	repo := newFakePrototypeRepo()
	svc := NewVersionService(nil, testLogger(), repo, nil)

	owner := uuid.New()
	prdID := uuid.New()

	generating := &types.Prototype{
		PRDID:  prdID,
		IdeaID: uuid.New(),
		UserID: owner,
		Status: types.PrototypeStatusGenerating,
	}
	if _, err := repo.CreateNextVersion(dbctx.New(memberCtx(owner)), generating); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, aerr := svc.Restore(dbctx.New(memberCtx(owner)), generating.ID); aerr == nil || aerr.Kind != apierr.KindValidation {
		t.Fatalf("expected VALIDATION_ERROR for non-ready source, got %v", aerr)
	}

	ready := seedReadyVersion(t, repo, prdID, uuid.New(), owner, `{}`)
	if _, aerr := svc.Restore(dbctx.New(memberCtx(uuid.New())), ready.ID); aerr == nil || aerr.Kind != apierr.KindUnauthorized {
		t.Fatalf("expected UNAUTHORIZED for foreign source, got %v", aerr)
	}

	if _, aerr := svc.Restore(dbctx.New(memberCtx(owner)), uuid.New()); aerr == nil || aerr.Kind != apierr.KindNotFound {
		t.Fatalf("expected NOT_FOUND for missing source, got %v", aerr)
	}
}

func TestLatestSkipsFailedVersions(t *testing.T) {
	repo := newFakePrototypeRepo()
	svc := NewVersionService(nil, testLogger(), repo, nil)

	owner := uuid.New()
	prdID := uuid.New()
	dbc := dbctx.New(memberCtx(owner))

	seedReadyVersion(t, repo, prdID, uuid.New(), owner, `{"app.jsx":"v1"}`)
	failed := &types.Prototype{
		PRDID:  prdID,
		IdeaID: uuid.New(),
		UserID: owner,
		Status: types.PrototypeStatusFailed,
	}
	if _, err := repo.CreateNextVersion(dbc, failed); err != nil {
		t.Fatalf("seed failed version: %v", err)
	}

	latest, aerr := svc.Latest(dbc, prdID)
	if aerr != nil {
		t.Fatalf("Latest: %v", aerr)
	}
	if latest == nil || latest.Version != 1 {
		t.Fatalf("latest should skip failed head: %+v", latest)
	}
}

func TestLatestEmptyLineageIsAbsence(t *testing.T) {
	svc := NewVersionService(nil, testLogger(), newFakePrototypeRepo(), nil)

	latest, aerr := svc.Latest(dbctx.New(memberCtx(uuid.New())), uuid.New())
	if aerr != nil {
		t.Fatalf("Latest on empty lineage should not error: %v", aerr)
	}
	if latest != nil {
		t.Fatalf("expected nil prototype, got %+v", latest)
	}
}
