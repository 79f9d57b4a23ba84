package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ideaforge/ideaforge-backend/internal/data/repos"
	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/ctxutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/envutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
)

const (
	refinementPromptMinLen = 10
	refinementPromptMaxLen = 500

	// Remote generation statuses reported by the AI service.
	remoteStatusGenerating = "generating"
	remoteStatusReady      = "ready"
	remoteStatusFailed     = "failed"

	generationFailedMessage = "Generation failed. Please try again."
	refinementFailedMessage = "Refinement failed. Please try again."
)

// GenerationService drives one prototype generation end to end:
// append a generating version row, submit to the AI backend, poll the
// handle to a terminal state, then flip the row exactly once.
type GenerationService interface {
	Generate(ctx context.Context, ideaID, prdID uuid.UUID, prompt string) (*types.Prototype, *apierr.Error)
	Refine(ctx context.Context, prototypeID uuid.UUID, prompt string) (*types.Prototype, *apierr.Error)
}

type generationService struct {
	db       *gorm.DB
	log      *logger.Logger
	ideas    repos.IdeaRepo
	protos   repos.PrototypeRepo
	versions VersionService
	ai       AIClient
	previews PreviewPublisher
	triage   IdeaTriageService

	pollInterval time.Duration
	maxPolls     int
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewGenerationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	ideaRepo repos.IdeaRepo,
	protoRepo repos.PrototypeRepo,
	versions VersionService,
	ai AIClient,
	previews PreviewPublisher,
	triage IdeaTriageService,
) GenerationService {
	log := baseLog.With("service", "GenerationService")
	return &generationService{
		db:           db,
		log:          log,
		ideas:        ideaRepo,
		protos:       protoRepo,
		versions:     versions,
		ai:           ai,
		previews:     previews,
		triage:       triage,
		pollInterval: time.Duration(envutil.GetEnvAsInt("GENERATION_POLL_INTERVAL_SECONDS", 2, log)) * time.Second,
		maxPolls:     envutil.GetEnvAsInt("GENERATION_MAX_POLLS", 90, log),
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *generationService) Generate(ctx context.Context, ideaID, prdID uuid.UUID, prompt string) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Generate", &aerr)

	dbc := dbctx.New(ctx)
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}
	if ideaID == uuid.Nil || prdID == uuid.Nil {
		return nil, apierr.Validation("idea and prd ids are required")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apierr.Validation("a generation prompt is required")
	}

	idea, err := s.ideas.GetByID(dbc, ideaID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if idea == nil {
		return nil, apierr.NotFound("idea")
	}
	if idea.UserID != rd.UserID && !rd.IsAdmin() {
		return nil, apierr.Unauthorized("idea belongs to another user")
	}

	row, aerr := s.versions.CreateGenerating(dbc, prdID, ideaID, idea.UserID, nil)
	if aerr != nil {
		return nil, aerr
	}

	req := GenerationRequest{TargetID: row.ID, Prompt: prompt}
	proto, aerr = s.run(ctx, row, req, generationFailedMessage)
	if aerr != nil {
		return nil, aerr
	}

	// A finished first prototype advances the idea. A lost race here
	// means someone else already advanced it, which is fine.
	if _, tErr := s.triage.MarkPrototypeComplete(dbc, ideaID); tErr != nil && tErr.Kind != apierr.KindAlreadyReviewed {
		s.log.Warn("idea advance after generation failed", "idea_id", ideaID, "kind", tErr.Kind)
	}
	return proto, nil
}

func (s *generationService) Refine(ctx context.Context, prototypeID uuid.UUID, prompt string) (proto *types.Prototype, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Refine", &aerr)

	dbc := dbctx.New(ctx)
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}

	prompt = strings.TrimSpace(prompt)
	if n := utf8.RuneCountInString(prompt); n < refinementPromptMinLen || n > refinementPromptMaxLen {
		return nil, apierr.Validation("refinement prompt must be between %d and %d characters", refinementPromptMinLen, refinementPromptMaxLen)
	}

	source, err := s.protos.GetByID(dbc, prototypeID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if source == nil {
		return nil, apierr.NotFound("prototype")
	}
	if source.UserID != rd.UserID && !rd.IsAdmin() {
		return nil, apierr.Unauthorized("prototype belongs to another user")
	}
	if source.Status != types.PrototypeStatusReady {
		return nil, apierr.Validation("only a ready prototype can be refined")
	}

	row, aerr := s.versions.CreateGenerating(dbc, source.PRDID, source.IdeaID, source.UserID, &prompt)
	if aerr != nil {
		return nil, aerr
	}

	req := GenerationRequest{TargetID: row.ID, Prompt: prompt, Context: string(source.Code)}
	return s.run(ctx, row, req, refinementFailedMessage)
}

// run executes submit-then-poll for one version row and flips it to a
// terminal state exactly once. A caller disconnect (context canceled)
// leaves the row generating; it is not a generation failure.
func (s *generationService) run(ctx context.Context, row *types.Prototype, req GenerationRequest, failMessage string) (*types.Prototype, *apierr.Error) {
	dbc := dbctx.New(ctx)

	handle, err := s.ai.Submit(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, apierr.Wrap(apierr.KindUnknown, "generation canceled", err)
		}
		s.markFailed(dbc, row.ID)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apierr.Wrap(apierr.KindTimeout, failMessage, err)
		}
		s.log.Error("generation submit failed", "prototype_id", row.ID, "error", err)
		return nil, apierr.Wrap(apierr.KindAI, failMessage, err)
	}
	if handle.Status == remoteStatusFailed {
		s.markFailed(dbc, row.ID)
		return nil, apierr.Wrap(apierr.KindAI, failMessage, ErrAIRejected)
	}

	update, aerr := s.pollUntilDone(ctx, row.ID, handle.HandleID, failMessage)
	if aerr != nil {
		return nil, aerr
	}

	url := update.URL
	if files := decodeFiles(update); s.previews != nil && len(files) > 0 {
		if published, pErr := s.previews.PublishBundle(ctx, row.ID, files); pErr != nil {
			// The handle URL still works short-term; keep it.
			s.log.Warn("preview bundle publish failed", "prototype_id", row.ID, "error", pErr)
		} else {
			url = &published
		}
	}

	matched, uErr := s.protos.UpdateIfStatus(dbc, row.ID, types.PrototypeStatusGenerating, map[string]any{
		"status": types.PrototypeStatusReady,
		"url":    url,
		"code":   update.Code,
	})
	if uErr != nil {
		return nil, apierr.DB(uErr)
	}
	if !matched {
		s.log.Warn("generation result discarded, row already terminal", "prototype_id", row.ID)
	}

	final, gErr := s.protos.GetByID(dbc, row.ID)
	if gErr != nil {
		return nil, apierr.DB(gErr)
	}
	if final == nil {
		return nil, apierr.NotFound("prototype")
	}
	return final, nil
}

func (s *generationService) pollUntilDone(ctx context.Context, rowID uuid.UUID, handleID, failMessage string) (*GenerationUpdate, *apierr.Error) {
	dbc := dbctx.New(ctx)

	for attempt := 0; attempt < s.maxPolls; attempt++ {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, apierr.Wrap(apierr.KindUnknown, "generation canceled", err)
			}
			s.markFailed(dbc, rowID)
			return nil, apierr.Wrap(apierr.KindTimeout, failMessage, err)
		}

		update, err := s.ai.Poll(ctx, handleID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, apierr.Wrap(apierr.KindUnknown, "generation canceled", err)
			}
			s.markFailed(dbc, rowID)
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, apierr.Wrap(apierr.KindTimeout, failMessage, err)
			}
			s.log.Error("generation poll failed", "prototype_id", rowID, "error", err)
			return nil, apierr.Wrap(apierr.KindAI, failMessage, err)
		}

		switch update.Status {
		case remoteStatusReady:
			return update, nil
		case remoteStatusFailed:
			s.markFailed(dbc, rowID)
			return nil, apierr.Wrap(apierr.KindAI, failMessage, fmt.Errorf("remote generation failed"))
		case remoteStatusGenerating:
			// keep polling
		default:
			s.log.Warn("unknown remote generation status", "status", update.Status)
		}
	}

	// Poll budget exhausted: timeout, distinguishable from an AI error.
	s.markFailed(dbc, rowID)
	return nil, apierr.Wrap(apierr.KindTimeout, failMessage, fmt.Errorf("generation did not finish within %d polls", s.maxPolls))
}

// markFailed is a guarded flip: if a concurrent path already finished
// the row, the failure mark loses and that is correct. The write runs
// on a fresh context because the caller's may already be expired.
func (s *generationService) markFailed(dbc dbctx.Context, rowID uuid.UUID) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(dbc.Ctx), 10*time.Second)
	defer cancel()
	dbc.Ctx = writeCtx

	matched, err := s.protos.UpdateIfStatus(dbc, rowID, types.PrototypeStatusGenerating, map[string]any{
		"status": types.PrototypeStatusFailed,
	})
	if err != nil {
		s.log.Error("failure mark did not persist", "prototype_id", rowID, "error", err)
		return
	}
	if !matched {
		s.log.Debug("failure mark skipped, row already terminal", "prototype_id", rowID)
	}
}

func decodeFiles(update *GenerationUpdate) map[string]string {
	if update == nil || len(update.Code) == 0 {
		return nil
	}
	tmp := types.Prototype{Code: update.Code}
	files, err := tmp.CodeFiles()
	if err != nil {
		return nil
	}
	return files
}
