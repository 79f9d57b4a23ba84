package ideas

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

type IdeaRepo interface {
	Create(dbc dbctx.Context, idea *types.Idea) (*types.Idea, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Idea, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Idea, error)
	ListActive(dbc dbctx.Context) ([]*types.Idea, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.Idea, error)
	CountByStatus(dbc dbctx.Context) (map[string]int64, error)

	// TransitionStatus is the optimistic-concurrency guard: one
	// conditional UPDATE whose WHERE clause carries the precondition.
	// Returns false when no row matched (wrong status, or no such id);
	// concurrent racers resolve with exactly one true.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error)
}

type ideaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIdeaRepo(db *gorm.DB, baseLog *logger.Logger) IdeaRepo {
	return &ideaRepo{db: db, log: baseLog.With("repo", "IdeaRepo")}
}

func (r *ideaRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *ideaRepo) Create(dbc dbctx.Context, idea *types.Idea) (*types.Idea, error) {
	if idea == nil {
		return nil, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).Create(idea).Error; err != nil {
		return nil, err
	}
	return idea, nil
}

func (r *ideaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Idea, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var idea types.Idea
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&idea).Error
	if err != nil {
		return nil, err
	}
	if idea.ID == uuid.Nil {
		return nil, nil
	}
	return &idea, nil
}

func (r *ideaRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Idea, error) {
	var out []*types.Idea
	if userID == uuid.Nil {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ideaRepo) ListActive(dbc dbctx.Context) ([]*types.Idea, error) {
	var out []*types.Idea
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("status <> ?", types.IdeaStatusRejected).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ideaRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.Idea, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []*types.Idea
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ideaRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.Idea{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.N
	}
	return counts, nil
}

func (r *ideaRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error) {
	if id == uuid.Nil || fromStatus == "" {
		return false, nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	res := r.handle(dbc).WithContext(dbc.Ctx).
		Model(&types.Idea{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
