package prototypes

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

type SessionStateRepo interface {
	// Upsert is last-write-wins on the prototype id; no merge.
	Upsert(dbc dbctx.Context, state *types.PrototypeSessionState) error
	GetByPrototypeID(dbc dbctx.Context, prototypeID uuid.UUID) (*types.PrototypeSessionState, error)
	Delete(dbc dbctx.Context, prototypeID uuid.UUID) error
}

type sessionStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionStateRepo(db *gorm.DB, baseLog *logger.Logger) SessionStateRepo {
	return &sessionStateRepo{db: db, log: baseLog.With("repo", "SessionStateRepo")}
}

func (r *sessionStateRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *sessionStateRepo) Upsert(dbc dbctx.Context, state *types.PrototypeSessionState) error {
	if state == nil || state.PrototypeID == uuid.Nil {
		return nil
	}
	state.UpdatedAt = time.Now().UTC()
	return r.handle(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prototype_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "user_id", "updated_at"}),
		}).
		Create(state).Error
}

func (r *sessionStateRepo) GetByPrototypeID(dbc dbctx.Context, prototypeID uuid.UUID) (*types.PrototypeSessionState, error) {
	if prototypeID == uuid.Nil {
		return nil, nil
	}
	var state types.PrototypeSessionState
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("prototype_id = ?", prototypeID).
		Limit(1).
		Find(&state).Error
	if err != nil {
		return nil, err
	}
	if state.PrototypeID == uuid.Nil {
		return nil, nil
	}
	return &state, nil
}

func (r *sessionStateRepo) Delete(dbc dbctx.Context, prototypeID uuid.UUID) error {
	if prototypeID == uuid.Nil {
		return nil
	}
	return r.handle(dbc).WithContext(dbc.Ctx).
		Where("prototype_id = ?", prototypeID).
		Delete(&types.PrototypeSessionState{}).Error
}
