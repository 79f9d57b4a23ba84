package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/ctxutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/realtime"
)

func testLogger() *logger.Logger { return logger.NewNop() }

func adminCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{
		UserID: userID,
		Role:   ctxutil.RoleAdmin,
	})
}

func memberCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID})
}

// fakeIdeaRepo mirrors the conditional-update semantics of the real
// repo: TransitionStatus checks and mutates under one lock, so
// concurrent callers resolve with exactly one winner.
type fakeIdeaRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*types.Idea
	fail  error
	calls int
}

func newFakeIdeaRepo() *fakeIdeaRepo {
	return &fakeIdeaRepo{rows: make(map[uuid.UUID]*types.Idea)}
}

func (f *fakeIdeaRepo) put(idea *types.Idea) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *idea
	f.rows[idea.ID] = &cp
}

func (f *fakeIdeaRepo) Create(dbc dbctx.Context, idea *types.Idea) (*types.Idea, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	if idea.ID == uuid.Nil {
		idea.ID = uuid.New()
	}
	idea.CreatedAt = time.Now().UTC()
	f.put(idea)
	return idea, nil
}

func (f *fakeIdeaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Idea, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeIdeaRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Idea, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Idea
	for _, row := range f.rows {
		if row.UserID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (f *fakeIdeaRepo) ListActive(dbc dbctx.Context) ([]*types.Idea, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	f.calls++
	defer f.mu.Unlock()
	var out []*types.Idea
	for _, row := range f.rows {
		if row.Status != types.IdeaStatusRejected {
			cp := *row
			out = append(out, &cp)
		}
	}
	sortByCreatedDesc(out)
	return out, nil
}

func (f *fakeIdeaRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.Idea, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Idea
	for _, row := range f.rows {
		cp := *row
		out = append(out, &cp)
	}
	sortByCreatedDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeIdeaRepo) CountByStatus(dbc dbctx.Context) (map[string]int64, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int64)
	for _, row := range f.rows {
		counts[row.Status]++
	}
	return counts, nil
}

func (f *fakeIdeaRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != fromStatus {
		return false, nil
	}
	applyIdeaUpdates(row, updates)
	return true, nil
}

func applyIdeaUpdates(row *types.Idea, updates map[string]any) {
	for col, val := range updates {
		switch col {
		case "status":
			row.Status = val.(string)
		case "status_updated_at":
			t := val.(time.Time)
			row.StatusUpdatedAt = &t
		case "rejection_feedback":
			s := val.(string)
			row.RejectionFeedback = &s
		case "rejected_by_user_id":
			u := val.(uuid.UUID)
			row.RejectedByUserID = &u
		case "rejected_at":
			t := val.(time.Time)
			row.RejectedAt = &t
		case "updated_at":
			row.UpdatedAt = val.(time.Time)
		}
	}
}

func sortByCreatedDesc(rows []*types.Idea) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

// fakePrototypeRepo keeps lineage rows in memory and assigns versions
// max+1 per prd under one lock.
type fakePrototypeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Prototype
	fail error
}

func newFakePrototypeRepo() *fakePrototypeRepo {
	return &fakePrototypeRepo{rows: make(map[uuid.UUID]*types.Prototype)}
}

func (f *fakePrototypeRepo) CreateNextVersion(dbc dbctx.Context, proto *types.Prototype) (*types.Prototype, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if proto.ID == uuid.Nil {
		proto.ID = uuid.New()
	}
	maxVersion := 0
	for _, row := range f.rows {
		if row.PRDID == proto.PRDID && row.Version > maxVersion {
			maxVersion = row.Version
		}
	}
	proto.Version = maxVersion + 1
	proto.CreatedAt = time.Now().UTC()
	cp := *proto
	f.rows[proto.ID] = &cp
	return proto, nil
}

func (f *fakePrototypeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Prototype, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakePrototypeRepo) ListByPRD(dbc dbctx.Context, prdID uuid.UUID) ([]*types.Prototype, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Prototype
	for _, row := range f.rows {
		if row.PRDID == prdID {
			cp := *row
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (f *fakePrototypeRepo) GetLatestNonFailed(dbc dbctx.Context, prdID uuid.UUID) (*types.Prototype, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	rows, _ := f.ListByPRD(dbc, prdID)
	for _, row := range rows {
		if row.Status != types.PrototypeStatusFailed {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakePrototypeRepo) UpdateIfStatus(dbc dbctx.Context, id uuid.UUID, fromStatus string, updates map[string]any) (bool, error) {
	if f.fail != nil {
		return false, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok || row.Status != fromStatus {
		return false, nil
	}
	for col, val := range updates {
		switch col {
		case "status":
			row.Status = val.(string)
		case "url":
			switch v := val.(type) {
			case *string:
				row.URL = v
			case string:
				row.URL = &v
			case nil:
				row.URL = nil
			}
		case "code":
			switch v := val.(type) {
			case datatypes.JSON:
				row.Code = v
			case []byte:
				row.Code = v
			}
		case "updated_at":
			row.UpdatedAt = val.(time.Time)
		}
	}
	return true, nil
}

// fakeSessionStateRepo is last-write-wins keyed on prototype id.
type fakeSessionStateRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.PrototypeSessionState
	fail error
}

func newFakeSessionStateRepo() *fakeSessionStateRepo {
	return &fakeSessionStateRepo{rows: make(map[uuid.UUID]*types.PrototypeSessionState)}
}

func (f *fakeSessionStateRepo) Upsert(dbc dbctx.Context, state *types.PrototypeSessionState) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *state
	f.rows[state.PrototypeID] = &cp
	return nil
}

func (f *fakeSessionStateRepo) GetByPrototypeID(dbc dbctx.Context, prototypeID uuid.UUID) (*types.PrototypeSessionState, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[prototypeID]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (f *fakeSessionStateRepo) Delete(dbc dbctx.Context, prototypeID uuid.UUID) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, prototypeID)
	return nil
}

// fakeAIClient scripts the submit and poll sequence for a generation.
type fakeAIClient struct {
	mu          sync.Mutex
	submitErr   error
	submitState string
	pollResults []pollResult
	pollIdx     int
	submits     []GenerationRequest
}

type pollResult struct {
	update *GenerationUpdate
	err    error
}

func (f *fakeAIClient) Submit(ctx context.Context, req GenerationRequest) (*GenerationHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	status := f.submitState
	if status == "" {
		status = remoteStatusGenerating
	}
	return &GenerationHandle{HandleID: "handle-" + req.TargetID.String(), Status: status}, nil
}

func (f *fakeAIClient) Poll(ctx context.Context, handleID string) (*GenerationUpdate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollIdx >= len(f.pollResults) {
		return &GenerationUpdate{Status: remoteStatusGenerating}, nil
	}
	res := f.pollResults[f.pollIdx]
	f.pollIdx++
	return res.update, res.err
}

// fakeBus records published events.
type fakeBus struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (f *fakeBus) Publish(ctx context.Context, ev realtime.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeBus) StartForwarder(ctx context.Context, onEvent func(realtime.Event)) error {
	return nil
}

func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakePreviewPublisher records bundles and returns a stable URL.
type fakePreviewPublisher struct {
	mu      sync.Mutex
	bundles map[uuid.UUID]map[string]string
	fail    error
}

func newFakePreviewPublisher() *fakePreviewPublisher {
	return &fakePreviewPublisher{bundles: make(map[uuid.UUID]map[string]string)}
}

func (f *fakePreviewPublisher) PublishBundle(ctx context.Context, prototypeID uuid.UUID, files map[string]string) (string, error) {
	if f.fail != nil {
		return "", f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles[prototypeID] = files
	return "https://previews.test/" + prototypeID.String(), nil
}

func (f *fakePreviewPublisher) DeleteBundle(ctx context.Context, prototypeID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bundles, prototypeID)
	return nil
}
