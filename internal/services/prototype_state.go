package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ideaforge/ideaforge-backend/internal/data/repos"
	types "github.com/ideaforge/ideaforge-backend/internal/domain"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/ctxutil"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/dbctx"
	"github.com/ideaforge/ideaforge-backend/internal/pkg/logger"
	"github.com/ideaforge/ideaforge-backend/internal/platform/apierr"
)

// sessionStateSchemaVersion is the only payload shape Load accepts.
// Older or malformed payloads are treated as absent, never as errors.
const sessionStateSchemaVersion = 1

// sessionPayload is the editing-session shape persisted per prototype:
// which files are open, where the cursor sits, and edits not yet saved
// into a version.
type sessionPayload struct {
	SchemaVersion int               `json:"schema_version"`
	OpenFiles     []string          `json:"open_files"`
	ActiveFile    string            `json:"active_file,omitempty"`
	Cursor        *cursorPosition   `json:"cursor,omitempty"`
	UnsavedEdits  map[string]string `json:"unsaved_edits,omitempty"`
}

type cursorPosition struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// PrototypeStateService persists editing-session state per prototype.
// Load validates against the schema and reports corrupt rows as a
// clean slate; ClearLocal drops only this process's copy.
type PrototypeStateService interface {
	Save(dbc dbctx.Context, prototypeID uuid.UUID, payload json.RawMessage) *apierr.Error
	Load(dbc dbctx.Context, prototypeID uuid.UUID) (json.RawMessage, *apierr.Error)
	ClearLocal(prototypeID uuid.UUID)
	Clear(dbc dbctx.Context, prototypeID uuid.UUID) *apierr.Error
}

type prototypeStateService struct {
	db     *gorm.DB
	log    *logger.Logger
	states repos.SessionStateRepo
	protos repos.PrototypeRepo

	mu    sync.Mutex
	local map[uuid.UUID]json.RawMessage
}

func NewPrototypeStateService(db *gorm.DB, baseLog *logger.Logger, stateRepo repos.SessionStateRepo, protoRepo repos.PrototypeRepo) PrototypeStateService {
	return &prototypeStateService{
		db:     db,
		log:    baseLog.With("service", "PrototypeStateService"),
		states: stateRepo,
		protos: protoRepo,
		local:  make(map[uuid.UUID]json.RawMessage),
	}
}

func (s *prototypeStateService) Save(dbc dbctx.Context, prototypeID uuid.UUID, payload json.RawMessage) (aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Save", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apierr.Unauthorized("")
	}
	if prototypeID == uuid.Nil {
		return apierr.Validation("prototype id is required")
	}
	if err := validateSessionPayload(payload); err != nil {
		return apierr.Validation("invalid session state: %v", err)
	}

	if aerr := s.authorize(dbc, rd, prototypeID); aerr != nil {
		return aerr
	}

	row := &types.PrototypeSessionState{
		PrototypeID: prototypeID,
		UserID:      rd.UserID,
		Payload:     datatypes.JSON(payload),
	}
	if err := s.states.Upsert(dbc, row); err != nil {
		s.log.Error("session state upsert failed", "prototype_id", prototypeID, "error", err)
		return apierr.DB(err)
	}

	s.mu.Lock()
	s.local[prototypeID] = payload
	s.mu.Unlock()
	return nil
}

// Load returns nil for a missing row and for a row that fails schema
// validation. Validation failure is logged but presented as absence so
// the editor starts fresh instead of erroring.
func (s *prototypeStateService) Load(dbc dbctx.Context, prototypeID uuid.UUID) (payload json.RawMessage, aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Load", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("")
	}
	if prototypeID == uuid.Nil {
		return nil, apierr.Validation("prototype id is required")
	}
	if aerr := s.authorize(dbc, rd, prototypeID); aerr != nil {
		return nil, aerr
	}

	row, err := s.states.GetByPrototypeID(dbc, prototypeID)
	if err != nil {
		return nil, apierr.DB(err)
	}
	if row == nil {
		return nil, nil
	}
	if vErr := validateSessionPayload(json.RawMessage(row.Payload)); vErr != nil {
		s.log.Warn("stored session state failed validation, treating as absent",
			"prototype_id", prototypeID,
			"error", vErr,
		)
		return nil, nil
	}

	raw := json.RawMessage(row.Payload)
	s.mu.Lock()
	s.local[prototypeID] = raw
	s.mu.Unlock()
	return raw, nil
}

// ClearLocal drops the in-process copy only; the stored row survives
// and the next Load repopulates it.
func (s *prototypeStateService) ClearLocal(prototypeID uuid.UUID) {
	s.mu.Lock()
	delete(s.local, prototypeID)
	s.mu.Unlock()
}

func (s *prototypeStateService) Clear(dbc dbctx.Context, prototypeID uuid.UUID) (aerr *apierr.Error) {
	defer recoverBoundary(s.log, "Clear", &aerr)

	rd := ctxutil.GetRequestData(dbc.Ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apierr.Unauthorized("")
	}
	if prototypeID == uuid.Nil {
		return apierr.Validation("prototype id is required")
	}
	if aerr := s.authorize(dbc, rd, prototypeID); aerr != nil {
		return aerr
	}

	if err := s.states.Delete(dbc, prototypeID); err != nil {
		return apierr.DB(err)
	}
	s.ClearLocal(prototypeID)
	return nil
}

func (s *prototypeStateService) authorize(dbc dbctx.Context, rd *ctxutil.RequestData, prototypeID uuid.UUID) *apierr.Error {
	proto, err := s.protos.GetByID(dbc, prototypeID)
	if err != nil {
		return apierr.DB(err)
	}
	if proto == nil {
		return apierr.NotFound("prototype")
	}
	if proto.UserID != rd.UserID && !rd.IsAdmin() {
		return apierr.Unauthorized("prototype belongs to another user")
	}
	return nil
}

var (
	errEmptyPayload  = errors.New("empty payload")
	errSchemaVersion = errors.New("unsupported schema version")
	errBadCursor     = errors.New("cursor requires a file and non-negative position")
	errBadOpenFile   = errors.New("open_files entries must be non-empty")
)

func validateSessionPayload(raw json.RawMessage) error {
	if len(raw) == 0 {
		return errEmptyPayload
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var p sessionPayload
	if err := dec.Decode(&p); err != nil {
		return err
	}
	if p.SchemaVersion != sessionStateSchemaVersion {
		return errSchemaVersion
	}
	if p.Cursor != nil {
		if p.Cursor.File == "" || p.Cursor.Line < 0 || p.Cursor.Column < 0 {
			return errBadCursor
		}
	}
	for _, f := range p.OpenFiles {
		if f == "" {
			return errBadOpenFile
		}
	}
	return nil
}
