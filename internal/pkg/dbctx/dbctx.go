package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// Repos use Tx when set and fall back to their own handle otherwise, so
// services can compose multi-repo writes inside one transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// New returns a Context with no transaction attached.
func New(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

// WithTx returns a copy of dbc bound to tx.
func (dbc Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: dbc.Ctx, Tx: tx}
}
