// Package auth issues and verifies the HS256 tokens used by the server:
// bearer access tokens (identified by a jti so they can be revoked) and
// single-purpose signed link tokens for email verification.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/taskhub/internal/common"
)

// PurposeVerifyEmail marks link tokens minted for the email verification
// challenge. Access tokens carry no purpose.
const PurposeVerifyEmail = "verify-email"

// Claims includes the registered claims plus the user id the token is bound
// to. The registered ID claim (jti) identifies the token for revocation.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"uid"`
	Purpose string `json:"purpose,omitempty"`
}

// GenerateToken mints a bearer access token for userID, returning the signed
// token together with its jti and expiry.
func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (token string, jti string, expiresAt time.Time, err error) {
	jti = uuid.NewString()
	expiresAt = time.Now().Add(validityDuration)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID: userID,
	})

	token, err = t.SignedString(secretKey)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return token, jti, expiresAt, nil
}

// ParseToken verifies signature and expiry and returns the claims.
// Expired tokens yield common.ErrTokenExpired; anything else malformed
// yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

// GenerateLinkToken mints a signed, time-limited token for an out-of-band
// link (email verification). The purpose claim pins the token to one flow.
func GenerateLinkToken(userID, purpose string, secretKey []byte, validityDuration time.Duration) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:  userID,
		Purpose: purpose,
	})
	return t.SignedString(secretKey)
}

// ParseLinkToken verifies a link token and checks that it was minted for the
// expected purpose and user.
func ParseLinkToken(tokenString, userID, purpose string, secretKey []byte) error {
	claims, err := ParseToken(tokenString, secretKey)
	if err != nil {
		return err
	}
	if claims.Purpose != purpose || claims.UserID != userID {
		return common.ErrInvalidToken
	}
	return nil
}
