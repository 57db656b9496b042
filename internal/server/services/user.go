package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/policy"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
)

// UserService handles the account lifecycle: registration, email
// verification, login, token refresh/revocation, and user management under
// the authorization policy.
type UserService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	logger              logging.Logger
	notifier            Notifier
	jwtSecret           []byte
	accessTokenValidity time.Duration
	linkValidity        time.Duration
	baseURL             string
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, notifier Notifier) *UserService {
	return &UserService{
		db:                  db,
		repomanager:         m,
		logger:              logger,
		notifier:            notifier,
		jwtSecret:           []byte(cfg.SecretKey),
		accessTokenValidity: cfg.AccessTokenValidityDuration,
		linkValidity:        cfg.VerificationLinkValidityDuration,
		baseURL:             strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// UpdateUserParams carries the optional fields of a profile update. Nil
// means "leave unchanged".
type UpdateUserParams struct {
	Name     *string
	Email    *string
	Password *string
}

// Register creates an unverified account with the default role and sends a
// verification link. A registration against an existing email is swallowed:
// it is logged, nothing is written, and no error is returned, so the caller
// cannot distinguish the two outcomes.
func (s *UserService) Register(ctx context.Context, name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return common.ErrorInternal
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)
		u, err := repo.Create(ctx, &models.User{Name: name, Email: email, PasswordHash: string(hash)})
		if err != nil {
			return err
		}
		if err := repo.AssignRole(ctx, u.ID, models.RoleUser); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			s.logger.Warn(ctx, "registration attempt for an existing email", "email", email)
			return nil
		}
		return fmt.Errorf("error creating user: %v", err)
	}

	s.sendVerification(ctx, user)
	return nil
}

// Login verifies the credentials and mints a bearer token. An unverified
// account never receives a token; instead a fresh verification link is sent
// and ErrEmailNotVerified is returned.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, "", common.ErrorUnauthorized
		}
		return nil, "", common.ErrorInternal
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", common.ErrorUnauthorized
	}
	if !user.Verified() {
		s.sendVerification(ctx, user)
		return nil, "", common.ErrEmailNotVerified
	}

	token, _, _, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, "", common.ErrorInternal
	}
	return user, token, nil
}

// Authenticate resolves a bearer token to the account it was issued for.
// Revoked tokens and link tokens presented as bearer tokens are rejected.
func (s *UserService) Authenticate(ctx context.Context, tokenString string) (*models.User, *auth.Claims, error) {
	claims, err := auth.ParseToken(tokenString, s.jwtSecret)
	if err != nil {
		return nil, nil, err
	}
	if claims.Purpose != "" {
		return nil, nil, common.ErrInvalidToken
	}

	revoked, err := s.repomanager.RevokedTokens(s.db).IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}
	if revoked {
		return nil, nil, common.ErrTokenRevoked
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidToken
		}
		return nil, nil, common.ErrorInternal
	}
	return user, claims, nil
}

// Refresh rotates a valid bearer token: the presented token's jti is revoked
// and a fresh token is minted in the same transaction, so the old token can
// never outlive the new one.
func (s *UserService) Refresh(ctx context.Context, claims *auth.Claims) (string, error) {
	var token string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RevokedTokens(tx)
		if err := repo.Revoke(ctx, &models.RevokedToken{
			JTI:       claims.ID,
			UserID:    claims.UserID,
			ExpiresAt: claims.ExpiresAt.Time,
		}); err != nil {
			return fmt.Errorf("error revoking token: %v", err)
		}
		t, _, _, err := auth.GenerateToken(claims.UserID, s.jwtSecret, s.accessTokenValidity)
		if err != nil {
			return err
		}
		token = t
		return nil
	})
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

// Logout revokes the presented token's jti. Revoking an already revoked
// token is a no-op.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	repo := s.repomanager.RevokedTokens(s.db)
	if err := repo.Revoke(ctx, &models.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Verify confirms the account's email using a signed link token. Verifying
// an already verified account is a no-op; the returned flag reports whether
// this call changed the state.
func (s *UserService) Verify(ctx context.Context, userID, linkToken string) (bool, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.ErrInvalidToken
		}
		return false, common.ErrorInternal
	}
	if user.Verified() {
		return false, nil
	}

	if err := auth.ParseLinkToken(linkToken, userID, auth.PurposeVerifyEmail, s.jwtSecret); err != nil {
		return false, err
	}

	if err := repo.MarkVerified(ctx, userID, time.Now()); err != nil {
		return false, common.ErrorInternal
	}
	return true, nil
}

// ResendVerification sends a fresh verification link to an unverified
// account.
func (s *UserService) ResendVerification(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if user.Verified() {
		return common.ErrAlreadyVerified
	}
	s.sendVerification(ctx, user)
	return nil
}

// List returns all accounts. Admins only.
func (s *UserService) List(ctx context.Context, actor models.Actor) ([]*models.User, error) {
	if d := policy.ListUsers(actor); !d.Allowed {
		return nil, &common.PolicyError{Reason: d.Reason}
	}
	users, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return users, nil
}

// Get returns a single account. A policy denial surfaces as ErrorNotFound so
// callers cannot probe for the existence of other accounts.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	if d := policy.ViewUser(actor, user); !d.Allowed {
		return nil, common.ErrorNotFound
	}
	return user, nil
}

// Update modifies the account's profile. Changing the email resets the
// verification state, records the previous address, and triggers a new
// verification challenge; the returned flag reports whether that happened.
func (s *UserService) Update(ctx context.Context, actor models.Actor, id string, params UpdateUserParams) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, common.ErrorNotFound
		}
		return nil, false, common.ErrorInternal
	}
	if d := policy.UpdateUser(actor, user); !d.Allowed {
		return nil, false, &common.PolicyError{Reason: d.Reason}
	}

	emailChanged := false
	if params.Name != nil {
		user.Name = *params.Name
	}
	if params.Email != nil && !strings.EqualFold(*params.Email, user.Email) {
		prev := user.Email
		user.OldEmail = &prev
		user.Email = *params.Email
		user.VerifiedAt = nil
		emailChanged = true
	}
	if params.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*params.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, false, common.ErrorInternal
		}
		user.PasswordHash = string(hash)
	}

	if err := repo.Update(ctx, user); err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			return nil, false, common.ErrDuplicateIdentity
		}
		return nil, false, common.ErrorInternal
	}

	if emailChanged {
		s.sendVerification(ctx, user)
	}
	return user, emailChanged, nil
}

// Delete removes the account. Authored and assigned tasks are removed with
// it by the storage layer.
func (s *UserService) Delete(ctx context.Context, actor models.Actor, id string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}
	if d := policy.DeleteUser(actor, user); !d.Allowed {
		return &common.PolicyError{Reason: d.Reason}
	}
	if err := repo.Delete(ctx, id); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// PurgeRevokedTokens drops revocation records for tokens that have expired
// on their own and no longer need to be tracked.
func (s *UserService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	return s.repomanager.RevokedTokens(s.db).PurgeExpired(ctx, time.Now())
}

// sendVerification builds a signed verification link and hands it to the
// notifier. Failures are logged and swallowed.
func (s *UserService) sendVerification(ctx context.Context, user *models.User) {
	token, err := auth.GenerateLinkToken(user.ID, auth.PurposeVerifyEmail, s.jwtSecret, s.linkValidity)
	if err != nil {
		s.logger.Error(ctx, "error generating verification link", "error", err)
		return
	}
	link := fmt.Sprintf("%s/email/verify/%s?token=%s", s.baseURL, user.ID, url.QueryEscape(token))
	s.notifier.EmailVerificationRequested(user, link)
}
