package services

import (
	"fmt"
	"time"

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

// VersionService owns the append-only prototype lineage per PRD.
// Version numbers come from the repo's transactional max+1 assignment;
// the service never computes them.
type VersionService interface {
	// CreateGenerating appends a new version row in the generating
	// state. refinementPrompt is nil for the first version.
	CreateGenerating(dbc dbctx.Context, prdID, ideaID, userID uuid.UUID, refinementPrompt *string) (*types.Prototype, *apierr.Error)

	// Restore copies a historical version's artifacts into a new head
	// version. The source row is never mutated.
	Restore(dbc dbctx.Context, prototypeID uuid.UUID) (*types.Prototype, *apierr.Error)

	VersionHistory(dbc dbctx.Context, prdID uuid.UUID) ([]*types.Prototype, *apierr.Error)

	// Latest returns the newest non-failed version, or nil when the
	// lineage is empty. Absence is not an error.
	Latest(dbc dbctx.Context, prdID uuid.UUID) (*types.Prototype, *apierr.Error)

	Get(dbc dbctx.Context, prototypeID uuid.UUID) (*types.Prototype, *apierr.Error)
}

type versionService struct {
	db     *gorm.DB
	log    *logger.Logger
	protos repos.PrototypeRepo
	bus    realtime.Bus
}

func NewVersionService(db *gorm.DB, baseLog *logger.Logger, protoRepo repos.PrototypeRepo, bus realtime.Bus) VersionService {
	return &versionService{
		db:     db,
		log:    baseLog.With("service", "VersionService"),
		protos: protoRepo,
		bus:    bus,
	}
}

func (s *versionService) CreateGenerating(dbc dbctx.Context, prdID, ideaID, userID uuid.UUID, refinementPrompt *string) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "CreateGenerating", &aerr)

	if prdID == uuid.Nil || ideaID == uuid.Nil || userID == uuid.Nil {
		return nil, apierr.Validation("prd, idea and user ids are required")
	}

	row := &types.Prototype{
		ID:               uuid.New(),
		PRDID:            prdID,
		IdeaID:           ideaID,
		UserID:           userID,
		Status:           types.PrototypeStatusGenerating,
		RefinementPrompt: refinementPrompt,
	}
	created, err := s.protos.CreateNextVersion(dbc, row)
	if err != nil {
		s.log.Error("version insert failed", "prd_id", prdID, "error", err)
		return nil, apierr.DB(err)
	}
	s.publishPrototypeEvent(dbc, realtime.OpInsert)
	return created, nil
}

func (s *versionService) Restore(dbc dbctx.Context, prototypeID uuid.UUID) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Restore", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}

	source, err := s.protos.GetByID(dbc, prototypeID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if source == nil {
		return nil, apierr.NotFound("prototype version")
	}
	if source.UserID != rd.UserID && !rd.IsAdmin() {
		return nil, apierr.Unauthorized("prototype belongs to another user")
	}
	if source.Status != types.PrototypeStatusReady {
		return nil, apierr.Validation("only a ready version can be restored")
	}

	prompt := fmt.Sprintf("Restored from v%d", source.Version)
	row := &types.Prototype{
		ID:               uuid.New(),
		PRDID:            source.PRDID,
		IdeaID:           source.IdeaID,
		UserID:           rd.UserID,
		Status:           types.PrototypeStatusReady,
		URL:              source.URL,
		Code:             source.Code,
		RefinementPrompt: &prompt,
	}
	created, err := s.protos.CreateNextVersion(dbc, row)
	if err != nil {
		s.log.Error("restore insert failed", "source_id", source.ID, "error", err)
		return nil, apierr.DB(err)
	}
	s.publishPrototypeEvent(dbc, realtime.OpInsert)
	return created, nil
}

func (s *versionService) VersionHistory(dbc dbctx.Context, prdID uuid.UUID) (out []*types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "VersionHistory", &aerr)

	if prdID == uuid.Nil {
		return nil, apierr.Validation("prd id is required")
	}
	rows, err := s.protos.ListByPRD(dbc, prdID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	return rows, nil
}

func (s *versionService) Latest(dbc dbctx.Context, prdID uuid.UUID) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Latest", &aerr)

	if prdID == uuid.Nil {
		return nil, apierr.Validation("prd id is required")
	}
	row, err := s.protos.GetLatestNonFailed(dbc, prdID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	return row, nil
}

func (s *versionService) Get(dbc dbctx.Context, prototypeID uuid.UUID) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Get", &aerr)

	row, err := s.protos.GetByID(dbc, prototypeID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if row == nil {
		return nil, apierr.NotFound("prototype version")
	}
	return row, nil
}

func (s *versionService) publishPrototypeEvent(dbc dbctx.Context, op string) {
	if s.bus == nil {
		return
	}
	ev := realtime.Event{Resource: realtime.ResourcePrototype, Op: op, OccurredAt: time.Now().UTC()}
	if err := s.bus.Publish(dbc.Ctx, ev); err != nil {
		s.log.Warn("prototype event publish failed", "op", op, "error", err)
	}
}
