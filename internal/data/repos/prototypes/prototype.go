package prototypes

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
)

type PrototypeRepo interface {
	// CreateNextVersion assigns version = max(lineage)+1 and inserts,
	// both inside one transaction holding a row lock on the lineage
	// head. The composite unique index on (prd_id, version) backs the
	// first-version race, which the lock cannot cover; on a duplicate
	// key the assignment is retried.
	CreateNextVersion(dbc dbctx.Context, proto *types.Prototype) (*types.Prototype, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Prototype, error)
	ListByPRD(dbc dbctx.Context, prdID uuid.UUID) ([]*types.Prototype, error)
	GetLatestNonFailed(dbc dbctx.Context, prdID uuid.UUID) (*types.Prototype, error)

	// UpdateIfStatus is the guarded terminal-state flip for a
	// generation request. Returns false when the row was not in
	// fromStatus anymore.
	UpdateIfStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error)
}

type prototypeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrototypeRepo(db *gorm.DB, baseLog *logger.Logger) PrototypeRepo {
	return &prototypeRepo{db: db, log: baseLog.With("repo", "PrototypeRepo")}
}

func (r *prototypeRepo) handle(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

const nextVersionAttempts = 3

func (r *prototypeRepo) CreateNextVersion(dbc dbctx.Context, proto *types.Prototype) (*types.Prototype, error) {
	if proto == nil || proto.PRDID == uuid.Nil {
		return nil, errors.New("prototype requires a prd id")
	}

	var lastErr error
	for attempt := 0; attempt < nextVersionAttempts; attempt++ {
		err := r.handle(dbc).WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
			var head types.Prototype
			qErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("prd_id = ?", proto.PRDID).
				Order("version DESC").
				Limit(1).
				Find(&head).Error
			if qErr != nil {
				return qErr
			}
			proto.Version = head.Version + 1
			return tx.Create(proto).Error
		})
		if err == nil {
			return proto, nil
		}
		lastErr = err
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		proto.ID = uuid.Nil
		r.log.Debug("version collision, retrying", "prd_id", proto.PRDID, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (r *prototypeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Prototype, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var proto types.Prototype
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&proto).Error
	if err != nil {
		return nil, err
	}
	if proto.ID == uuid.Nil {
		return nil, nil
	}
	return &proto, nil
}

func (r *prototypeRepo) ListByPRD(dbc dbctx.Context, prdID uuid.UUID) ([]*types.Prototype, error) {
	var out []*types.Prototype
	if prdID == uuid.Nil {
		return out, nil
	}
	if err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("prd_id = ?", prdID).
		Order("version DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *prototypeRepo) GetLatestNonFailed(dbc dbctx.Context, prdID uuid.UUID) (*types.Prototype, error) {
	if prdID == uuid.Nil {
		return nil, nil
	}
	var proto types.Prototype
	err := r.handle(dbc).WithContext(dbc.Ctx).
		Where("prd_id = ? AND status <> ?", prdID, types.PrototypeStatusFailed).
		Order("version DESC").
		Limit(1).
		Find(&proto).Error
	if err != nil {
		return nil, err
	}
	if proto.ID == uuid.Nil {
		return nil, nil
	}
	return &proto, nil
}

func (r *prototypeRepo) UpdateIfStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error) {
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
		Model(&types.Prototype{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
