// Package revokedtokens provides the repository backing the token issuer's
// revocation state. A token's jti lands here on logout or refresh; rows are
// purgeable once past the token's own expiry.
package revokedtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/taskhub/internal/server/models"
)

// Repository is the persistence contract for revoked token ids.
type Repository interface {
	Revoke(ctx context.Context, token *models.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
