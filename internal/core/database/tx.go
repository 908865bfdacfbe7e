package database

import (
	"context"

	"gorm.io/gorm"
)

type ctxKey string

const txKey ctxKey = "gorm_tx"

// TxManager runs a function inside a database transaction. The transaction
// handle travels in the context so repositories called within the closure all
// share it; a returned error rolls everything back, including audit log rows.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

type GormTxManager struct {
	db *gorm.DB
}

func NewTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	// Nested Do calls join the already-open transaction.
	if _, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return fn(ctx)
	}
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// FromContext returns the transaction bound to ctx, or fallback when the
// caller is not running inside TxManager.Do.
func FromContext(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return fallback.WithContext(ctx)
}
