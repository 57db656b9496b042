package models

import "time"

// RevokedToken records a token id (jti) that must no longer validate.
// Rows are owned by the token issuer and become purgeable once ExpiresAt
// has passed, since the token would be rejected as expired anyway.
type RevokedToken struct {
	JTI       string
	UserID    string
	ExpiresAt time.Time
}
