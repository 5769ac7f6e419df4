package database

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}
type hookKey struct{}

type txHooks struct {
	fns []func()
}

// Transactor runs a function with every repository call inside one
// database transaction. The transaction handle travels in the context
// so repositories compose without knowing about each other.
type Transactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	hooks := &txHooks{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ctx := context.WithValue(ctx, txKey{}, tx)
		ctx = context.WithValue(ctx, hookKey{}, hooks)
		return fn(ctx)
	})
	if err != nil {
		return err
	}
	for _, fn := range hooks.fns {
		fn()
	}
	return nil
}

// AfterCommit defers fn until the enclosing transaction commits, so
// side effects like cache invalidation never expose uncommitted state.
// Outside a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if hooks, ok := ctx.Value(hookKey{}).(*txHooks); ok {
		hooks.fns = append(hooks.fns, fn)
		return
	}
	fn()
}

// FromContext returns the transaction bound to ctx, or fallback when
// the call is not inside RunInTx.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
