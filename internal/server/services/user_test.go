package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/taskhub/internal/common"
	"github.com/dmitrijs2005/taskhub/internal/dbx"
	"github.com/dmitrijs2005/taskhub/internal/logging"
	"github.com/dmitrijs2005/taskhub/internal/server/auth"
	"github.com/dmitrijs2005/taskhub/internal/server/config"
	"github.com/dmitrijs2005/taskhub/internal/server/models"
	"github.com/dmitrijs2005/taskhub/internal/server/repositories/repomanager"
	revokedrepo "github.com/dmitrijs2005/taskhub/internal/server/repositories/revokedtokens"
	tasksrepo "github.com/dmitrijs2005/taskhub/internal/server/repositories/tasks"
	usersrepo "github.com/dmitrijs2005/taskhub/internal/server/repositories/users"
	"github.com/dmitrijs2005/taskhub/internal/server/taskquery"
)

// --- helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newUserService(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager, n *fakeNotifier) *UserService {
	t.Helper()
	cfg := &config.Config{
		SecretKey:                        "k",
		AccessTokenValidityDuration:      time.Hour,
		VerificationLinkValidityDuration: time.Hour,
		BaseURL:                          "http://localhost:8080",
	}
	if n == nil {
		n = &fakeNotifier{}
	}
	return NewUserService(db, rm, cfg, testLogger(), n)
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

type fakeNotifier struct {
	verificationLinks []string
	assignedTasks     []string
	completedTasks    []string
}

func (f *fakeNotifier) EmailVerificationRequested(user *models.User, link string) {
	f.verificationLinks = append(f.verificationLinks, link)
}
func (f *fakeNotifier) TaskAssigned(task *models.Task, assignee *models.User) {
	f.assignedTasks = append(f.assignedTasks, task.ID)
}
func (f *fakeNotifier) TaskCompleted(task *models.Task, creator *models.User) {
	f.completedTasks = append(f.completedTasks, task.ID)
}

type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	byID     map[string]*models.User
	getIDErr error

	byEmail     map[string]*models.User
	getEmailErr error

	listOut []*models.User
	listErr error

	updateErr       error
	markVerifiedErr error
	assignRoleErr   error
	deleteErr       error

	assignedRoles [][2]string
	verifiedIDs   []string
	updated       []*models.User
	deletedIDs    []string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}
func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getIDErr != nil {
		return nil, f.getIDErr
	}
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}
func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getEmailErr != nil {
		return nil, f.getEmailErr
	}
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}
func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}
func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, u)
	return nil
}
func (f *fakeUsersRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	if f.markVerifiedErr != nil {
		return f.markVerifiedErr
	}
	f.verifiedIDs = append(f.verifiedIDs, id)
	return nil
}
func (f *fakeUsersRepo) AssignRole(ctx context.Context, userID, role string) error {
	if f.assignRoleErr != nil {
		return f.assignRoleErr
	}
	f.assignedRoles = append(f.assignedRoles, [2]string{userID, role})
	return nil
}
func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeTasksRepo struct {
	createErr error
	created   []*models.Task

	byID     map[string]*models.Task
	getIDErr error

	listOut  []*models.Task
	listErr  error
	lastList *taskquery.Query

	updateErr error
	updated   []*models.Task

	setCompletedErr error
	completedIDs    []string

	setFileKeyErr error
	fileKeys      map[string]string

	deleteErr  error
	deletedIDs []string
}

func (f *fakeTasksRepo) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if task.ID == "" {
		task.ID = "t1"
	}
	f.created = append(f.created, task)
	return task, nil
}
func (f *fakeTasksRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	if f.getIDErr != nil {
		return nil, f.getIDErr
	}
	if task, ok := f.byID[id]; ok {
		return task, nil
	}
	return nil, common.ErrorNotFound
}
func (f *fakeTasksRepo) List(ctx context.Context, q *taskquery.Query) ([]*models.Task, error) {
	f.lastList = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listOut, nil
}
func (f *fakeTasksRepo) Update(ctx context.Context, task *models.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, task)
	return nil
}
func (f *fakeTasksRepo) SetCompleted(ctx context.Context, id string) error {
	if f.setCompletedErr != nil {
		return f.setCompletedErr
	}
	f.completedIDs = append(f.completedIDs, id)
	return nil
}
func (f *fakeTasksRepo) SetFileKey(ctx context.Context, id, key string) error {
	if f.setFileKeyErr != nil {
		return f.setFileKeyErr
	}
	if f.fileKeys == nil {
		f.fileKeys = map[string]string{}
	}
	f.fileKeys[id] = key
	return nil
}
func (f *fakeTasksRepo) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

type fakeRevokedRepo struct {
	revokeErr error
	revoked   []*models.RevokedToken

	isRevokedOut bool
	isRevokedErr error

	purgeOut int64
	purgeErr error
}

func (f *fakeRevokedRepo) Revoke(ctx context.Context, token *models.RevokedToken) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, token)
	return nil
}
func (f *fakeRevokedRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return f.isRevokedOut, f.isRevokedErr
}
func (f *fakeRevokedRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return f.purgeOut, f.purgeErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	t *fakeTasksRepo
	r *fakeRevokedRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error       { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository             { return m.u }
func (m *fakeRepoManager) Tasks(db dbx.DBTX) tasksrepo.Repository             { return m.t }
func (m *fakeRepoManager) RevokedTokens(db dbx.DBTX) revokedrepo.Repository   { return m.r }

// --- tests ---

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	users := &fakeUsersRepo{createOut: &models.User{ID: "u1", Name: "alice", Email: "a@x.com"}}
	rm := &fakeRepoManager{u: users}
	n := &fakeNotifier{}
	s := newUserService(t, db, rm, n)

	if err := s.Register(context.Background(), "alice", "a@x.com", "password"); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if len(users.assignedRoles) != 1 || users.assignedRoles[0] != [2]string{"u1", models.RoleUser} {
		t.Fatalf("role not assigned: %v", users.assignedRoles)
	}
	if len(n.verificationLinks) != 1 {
		t.Fatalf("expected one verification link, got %d", len(n.verificationLinks))
	}
	if !strings.HasPrefix(n.verificationLinks[0], "http://localhost:8080/email/verify/u1?token=") {
		t.Fatalf("unexpected link: %q", n.verificationLinks[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_DuplicateSwallowed(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: common.ErrDuplicateIdentity}}
	n := &fakeNotifier{}
	s := newUserService(t, db, rm, n)

	if err := s.Register(context.Background(), "alice", "a@x.com", "password"); err != nil {
		t.Fatalf("duplicate registration must not error, got %v", err)
	}
	if len(n.verificationLinks) != 0 {
		t.Fatalf("no notification expected for duplicates")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_CreateErr(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &fakeRepoManager{u: &fakeUsersRepo{createErr: errBoom{}}}
	s := newUserService(t, db, rm, nil)

	err := s.Register(context.Background(), "bob", "b@x.com", "password")
	if err == nil || !regexp.MustCompile(`error creating user: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestLogin_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	hash := hashOf(t, "right")
	now := time.Now()

	// not found → unauthorized
	sNF := newUserService(t, db, &fakeRepoManager{u: &fakeUsersRepo{}}, nil)
	if _, _, err := sNF.Login(context.Background(), "ghost@x.com", "x"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("notfound → unauthorized, got %v", err)
	}

	// wrong password → unauthorized
	rmWP := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"a@x.com": {ID: "u1", Email: "a@x.com", PasswordHash: hash, VerifiedAt: &now},
	}}}
	sWP := newUserService(t, db, rmWP, nil)
	if _, _, err := sWP.Login(context.Background(), "a@x.com", "wrong"); !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("wrong password → unauthorized, got %v", err)
	}

	// unverified → no token, one verification notification
	rmUV := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"a@x.com": {ID: "u1", Email: "a@x.com", PasswordHash: hash},
	}}}
	nUV := &fakeNotifier{}
	sUV := newUserService(t, db, rmUV, nUV)
	if _, _, err := sUV.Login(context.Background(), "a@x.com", "right"); !errors.Is(err, common.ErrEmailNotVerified) {
		t.Fatalf("unverified → ErrEmailNotVerified, got %v", err)
	}
	if len(nUV.verificationLinks) != 1 {
		t.Fatalf("unverified login must trigger exactly one notification, got %d", len(nUV.verificationLinks))
	}

	// success
	rmOK := &fakeRepoManager{u: &fakeUsersRepo{byEmail: map[string]*models.User{
		"a@x.com": {ID: "u1", Email: "a@x.com", PasswordHash: hash, VerifiedAt: &now},
	}}}
	sOK := newUserService(t, db, rmOK, nil)
	user, token, err := sOK.Login(context.Background(), "a@x.com", "right")
	if err != nil || token == "" || user.ID != "u1" {
		t.Fatalf("Login success: user=%+v token=%q err=%v", user, token, err)
	}
}

func TestAuthenticate_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	token, jti, _, err := auth.GenerateToken("u1", []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	rm := &fakeRepoManager{
		u: &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1"}}},
		r: &fakeRevokedRepo{},
	}
	s := newUserService(t, db, rm, nil)

	user, claims, err := s.Authenticate(context.Background(), token)
	if err != nil || user.ID != "u1" || claims.ID != jti {
		t.Fatalf("Authenticate ok: user=%+v claims=%+v err=%v", user, claims, err)
	}

	// revoked token
	rm.r.isRevokedOut = true
	if _, _, err := s.Authenticate(context.Background(), token); !errors.Is(err, common.ErrTokenRevoked) {
		t.Fatalf("revoked → ErrTokenRevoked, got %v", err)
	}
	rm.r.isRevokedOut = false

	// garbage token
	if _, _, err := s.Authenticate(context.Background(), "garbage"); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("garbage → ErrInvalidToken, got %v", err)
	}

	// link token is not a bearer token
	link, err := auth.GenerateLinkToken("u1", auth.PurposeVerifyEmail, []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateLinkToken: %v", err)
	}
	if _, _, err := s.Authenticate(context.Background(), link); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("link token → ErrInvalidToken, got %v", err)
	}

	// user gone
	rm2 := &fakeRepoManager{u: &fakeUsersRepo{}, r: &fakeRevokedRepo{}}
	s2 := newUserService(t, db, rm2, nil)
	if _, _, err := s2.Authenticate(context.Background(), token); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("missing user → ErrInvalidToken, got %v", err)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	token, jti, _, err := auth.GenerateToken("u1", []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := auth.ParseToken(token, []byte("k"))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	revoked := &fakeRevokedRepo{}
	s := newUserService(t, db, &fakeRepoManager{r: revoked}, nil)

	fresh, err := s.Refresh(context.Background(), claims)
	if err != nil || fresh == "" {
		t.Fatalf("Refresh: token=%q err=%v", fresh, err)
	}
	if len(revoked.revoked) != 1 || revoked.revoked[0].JTI != jti {
		t.Fatalf("old jti not revoked: %+v", revoked.revoked)
	}

	freshClaims, err := auth.ParseToken(fresh, []byte("k"))
	if err != nil || freshClaims.UserID != "u1" {
		t.Fatalf("fresh token claims: %+v err=%v", freshClaims, err)
	}
	if freshClaims.ID == jti {
		t.Fatalf("fresh token must carry a new jti")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestLogout_RevokesToken(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	token, jti, _, err := auth.GenerateToken("u1", []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := auth.ParseToken(token, []byte("k"))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}

	revoked := &fakeRevokedRepo{}
	s := newUserService(t, db, &fakeRepoManager{r: revoked}, nil)

	if err := s.Logout(context.Background(), claims); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(revoked.revoked) != 1 || revoked.revoked[0].JTI != jti || revoked.revoked[0].UserID != "u1" {
		t.Fatalf("jti not revoked: %+v", revoked.revoked)
	}
}

func TestVerify_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	link, err := auth.GenerateLinkToken("u1", auth.PurposeVerifyEmail, []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateLinkToken: %v", err)
	}

	users := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, nil)

	changed, err := s.Verify(context.Background(), "u1", link)
	if err != nil || !changed {
		t.Fatalf("Verify: changed=%v err=%v", changed, err)
	}
	if len(users.verifiedIDs) != 1 || users.verifiedIDs[0] != "u1" {
		t.Fatalf("MarkVerified not called: %v", users.verifiedIDs)
	}

	// already verified → no-op
	now := time.Now()
	usersOK := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1", VerifiedAt: &now}}}
	s2 := newUserService(t, db, &fakeRepoManager{u: usersOK}, nil)
	changed, err = s2.Verify(context.Background(), "u1", link)
	if err != nil || changed {
		t.Fatalf("repeat Verify must be a no-op: changed=%v err=%v", changed, err)
	}
	if len(usersOK.verifiedIDs) != 0 {
		t.Fatalf("MarkVerified must not run again")
	}

	// token minted for another user
	other, err := auth.GenerateLinkToken("u2", auth.PurposeVerifyEmail, []byte("k"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateLinkToken: %v", err)
	}
	if _, err := s.Verify(context.Background(), "u1", other); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("foreign link → ErrInvalidToken, got %v", err)
	}

	// unknown user
	if _, err := s.Verify(context.Background(), "ghost", link); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("unknown user → ErrInvalidToken, got %v", err)
	}
}

func TestResendVerification_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	n := &fakeNotifier{}
	users := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, n)

	if err := s.ResendVerification(context.Background(), "u1"); err != nil {
		t.Fatalf("ResendVerification: %v", err)
	}
	if len(n.verificationLinks) != 1 {
		t.Fatalf("expected one link, got %d", len(n.verificationLinks))
	}

	now := time.Now()
	usersOK := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1", VerifiedAt: &now}}}
	s2 := newUserService(t, db, &fakeRepoManager{u: usersOK}, nil)
	if err := s2.ResendVerification(context.Background(), "u1"); !errors.Is(err, common.ErrAlreadyVerified) {
		t.Fatalf("verified → ErrAlreadyVerified, got %v", err)
	}
}

func TestUserList_Policy(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	users := &fakeUsersRepo{listOut: []*models.User{{ID: "u1"}, {ID: "u2"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, nil)

	var policyErr *common.PolicyError
	if _, err := s.List(context.Background(), models.Actor{ID: "u1"}); !errors.As(err, &policyErr) {
		t.Fatalf("non-admin list → PolicyError, got %v", err)
	}

	out, err := s.List(context.Background(), models.Actor{ID: "adm", IsAdmin: true})
	if err != nil || len(out) != 2 {
		t.Fatalf("admin list: %v err=%v", out, err)
	}
}

func TestUserGet_ScopeHidesExistence(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	users := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1"}, "u2": {ID: "u2"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, nil)

	if u, err := s.Get(context.Background(), models.Actor{ID: "u1"}, "u1"); err != nil || u.ID != "u1" {
		t.Fatalf("self get: %v err=%v", u, err)
	}
	if _, err := s.Get(context.Background(), models.Actor{ID: "u1"}, "u2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("foreign get must look absent, got %v", err)
	}
	if _, err := s.Get(context.Background(), models.Actor{ID: "u1"}, "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("absent get → ErrorNotFound, got %v", err)
	}
	if u, err := s.Get(context.Background(), models.Actor{ID: "adm", IsAdmin: true}, "u2"); err != nil || u.ID != "u2" {
		t.Fatalf("admin get: %v err=%v", u, err)
	}
}

func TestUserUpdate_EmailChangeResetsVerification(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	now := time.Now()
	users := &fakeUsersRepo{byID: map[string]*models.User{
		"u1": {ID: "u1", Name: "alice", Email: "old@x.com", VerifiedAt: &now},
	}}
	n := &fakeNotifier{}
	s := newUserService(t, db, &fakeRepoManager{u: users}, n)

	email := "new@x.com"
	user, resent, err := s.Update(context.Background(), models.Actor{ID: "u1", Verified: true}, "u1", UpdateUserParams{Email: &email})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !resent {
		t.Fatalf("email change must trigger re-verification")
	}
	if user.Email != "new@x.com" || user.VerifiedAt != nil {
		t.Fatalf("verification state not reset: %+v", user)
	}
	if user.OldEmail == nil || *user.OldEmail != "old@x.com" {
		t.Fatalf("previous email not recorded: %+v", user.OldEmail)
	}
	if len(n.verificationLinks) != 1 {
		t.Fatalf("expected one verification link, got %d", len(n.verificationLinks))
	}
}

func TestUserUpdate_PolicyAndDuplicate(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	users := &fakeUsersRepo{byID: map[string]*models.User{"u2": {ID: "u2", Email: "b@x.com"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, nil)

	name := "mallory"
	var policyErr *common.PolicyError
	if _, _, err := s.Update(context.Background(), models.Actor{ID: "u1"}, "u2", UpdateUserParams{Name: &name}); !errors.As(err, &policyErr) {
		t.Fatalf("foreign update → PolicyError, got %v", err)
	}

	usersDup := &fakeUsersRepo{
		byID:      map[string]*models.User{"u2": {ID: "u2", Email: "b@x.com"}},
		updateErr: common.ErrDuplicateIdentity,
	}
	s2 := newUserService(t, db, &fakeRepoManager{u: usersDup}, nil)
	email := "taken@x.com"
	if _, _, err := s2.Update(context.Background(), models.Actor{ID: "u2"}, "u2", UpdateUserParams{Email: &email}); !errors.Is(err, common.ErrDuplicateIdentity) {
		t.Fatalf("duplicate email → ErrDuplicateIdentity, got %v", err)
	}
}

func TestUserDelete_Policy(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	users := &fakeUsersRepo{byID: map[string]*models.User{"u1": {ID: "u1"}, "u2": {ID: "u2"}}}
	s := newUserService(t, db, &fakeRepoManager{u: users}, nil)

	var policyErr *common.PolicyError
	if err := s.Delete(context.Background(), models.Actor{ID: "u1"}, "u2"); !errors.As(err, &policyErr) {
		t.Fatalf("foreign delete → PolicyError, got %v", err)
	}
	if err := s.Delete(context.Background(), models.Actor{ID: "u1"}, "u1"); err != nil {
		t.Fatalf("self delete: %v", err)
	}
	if len(users.deletedIDs) != 1 || users.deletedIDs[0] != "u1" {
		t.Fatalf("delete not recorded: %v", users.deletedIDs)
	}
}

func TestPurgeRevokedTokens(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	s := newUserService(t, db, &fakeRepoManager{r: &fakeRevokedRepo{purgeOut: 3}}, nil)
	n, err := s.PurgeRevokedTokens(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("PurgeRevokedTokens: n=%d err=%v", n, err)
	}
}
