package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/ideaforge/ideaforge-backend/internal/domain"
)

func SeedIdea(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, status string) *types.Idea {
	tb.Helper()
	idea := &types.Idea{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    "idea",
		Problem:  "problem",
		Solution: "solution",
		Status:   status,
	}
	if err := tx.WithContext(ctx).Create(idea).Error; err != nil {
		tb.Fatalf("seed idea: %v", err)
	}
	return idea
}

func SeedPrototype(tb testing.TB, ctx context.Context, tx *gorm.DB, prdID, ideaID, userID uuid.UUID, version int, status string) *types.Prototype {
	tb.Helper()
	proto := &types.Prototype{
		ID:      uuid.New(),
		PRDID:   prdID,
		IdeaID:  ideaID,
		UserID:  userID,
		Version: version,
		Status:  status,
		Code:    datatypes.JSON([]byte(`{"file":"code"}`)),
	}
	if err := tx.WithContext(ctx).Create(proto).Error; err != nil {
		tb.Fatalf("seed prototype: %v", err)
	}
	return proto
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }

func PtrString(v string) *string { return &v }
