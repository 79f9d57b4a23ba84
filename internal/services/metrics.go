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

const recentSubmissionsLimit = 10

// MetricsOverview is the dashboard headline read model.
type MetricsOverview struct {
	CountsByStatus    map[string]int64 `json:"counts_by_status"`
	TotalActive       int64            `json:"total_active"`
	TotalRejected     int64            `json:"total_rejected"`
	RecentSubmissions []*types.Idea    `json:"recent_submissions"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

type MetricsService interface {
	Overview(dbc dbctx.Context) (*MetricsOverview, *apierr.Error)
}

type metricsService struct {
	db    *gorm.DB
	log   *logger.Logger
	ideas repos.IdeaRepo
	cache *realtime.ViewCache
	now   func() time.Time
}

func NewMetricsService(db *gorm.DB, baseLog *logger.Logger, ideaRepo repos.IdeaRepo, cache *realtime.ViewCache) MetricsService {
	return &metricsService{
		db:    db,
		log:   baseLog.With("service", "MetricsService"),
		ideas: ideaRepo,
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *metricsService) Overview(dbc dbctx.Context) (out *MetricsOverview, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Overview", &aerr)

	counts, aerr := s.statusCounts(dbc)
	if aerr != nil {
		return nil, aerr
	}
	recent, aerr := s.recentSubmissions(dbc)
	if aerr != nil {
		return nil, aerr
	}

	var active, rejected int64
	for status, n := range counts {
		if status == types.IdeaStatusRejected {
			rejected += n
		} else {
			active += n
		}
	}

	return &MetricsOverview{
		CountsByStatus:    counts,
		TotalActive:       active,
		TotalRejected:     rejected,
		RecentSubmissions: recent,
		GeneratedAt:       s.now(),
	}, nil
}

func (s *metricsService) statusCounts(dbc dbctx.Context) (map[string]int64, *apierr.Error) {
	if cached, ok := s.cache.Get(realtime.ViewMetrics); ok {
		if counts, ok := cached.(map[string]int64); ok {
			return counts, nil
		}
	}
	counts, err := s.ideas.CountByStatus(dbc)
	if err != nil {
		s.log.Error("status count query failed", "error", err)
		return nil, apierr.DB(err)
	}
	s.cache.Put(realtime.ViewMetrics, counts)
	return counts, nil
}

func (s *metricsService) recentSubmissions(dbc dbctx.Context) ([]*types.Idea, *apierr.Error) {
	if cached, ok := s.cache.Get(realtime.ViewRecentSubmissions); ok {
		if rows, ok := cached.([]*types.Idea); ok {
			return rows, nil
		}
	}
	rows, err := s.ideas.ListRecent(dbc, recentSubmissionsLimit)
	if err != nil {
		s.log.Error("recent submissions query failed", "error", err)
		return nil, apierr.DB(err)
	}
	s.cache.Put(realtime.ViewRecentSubmissions, rows)
	return rows, nil
}
