package certstore

import (
	"context"
	"time"

	"github.com/danielpatrickdp/aisp-verify/internal/smt"
)

// #region certificate
// Certificate is one persisted solver verdict.
type Certificate struct {
	Key       string      `json:"key"`
	Mode      smt.Mode    `json:"mode"`
	Verdict   smt.Verdict `json:"verdict"`
	CreatedAt time.Time   `json:"created_at"`
}

// #endregion certificate

// #region backend
// Backend is a persistent certificate store the cache CLI can inspect.
type Backend interface {
	smt.Store
	List(ctx context.Context, limit int) ([]Certificate, error)
	Count(ctx context.Context) (int, error)
	Purge(ctx context.Context) (int, error)
	Close() error
}

// #endregion backend
