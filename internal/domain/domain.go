// Package domain re-exports the model types so call sites can import a
// single package, mirroring how the tables live in one database.
package domain

import (
	"github.com/ideaforge/ideaforge-backend/internal/domain/ideas"
	"github.com/ideaforge/ideaforge-backend/internal/domain/prototypes"
)

type Idea = ideas.Idea
type Prototype = prototypes.Prototype
type PrototypeSessionState = prototypes.PrototypeSessionState

const (
	IdeaStatusSubmitted         = ideas.StatusSubmitted
	IdeaStatusApproved          = ideas.StatusApproved
	IdeaStatusPRDDevelopment    = ideas.StatusPRDDevelopment
	IdeaStatusPrototypeComplete = ideas.StatusPrototypeComplete
	IdeaStatusRejected          = ideas.StatusRejected

	PrototypeStatusGenerating = prototypes.StatusGenerating
	PrototypeStatusReady      = prototypes.StatusReady
	PrototypeStatusFailed     = prototypes.StatusFailed
)
