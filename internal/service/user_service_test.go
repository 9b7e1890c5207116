package service

import (
	"context"
	"errors"
	"testing"

	"playtopia/internal/domain"
	"playtopia/internal/repository"

	"github.com/google/uuid"
)

const testJWTSecret = "test-secret-key-for-unit-tests"

type userFixture struct {
	svc    UserService
	users  *mockUserRepo
	tokens *mockTokenRepo
}

func newUserFixture() *userFixture {
	users := newMockUserRepo()
	tokens := newMockTokenRepo()
	return &userFixture{
		svc:    NewUserService(users, tokens, testJWTSecret),
		users:  users,
		tokens: tokens,
	}
}

func (f *userFixture) register(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), email, "s3cret-pass", "Asha", "Rao")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return user
}

func TestRegisterAndLogin(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()

	user := f.register(t, "asha@example.com")
	if user.Role != "user" {
		t.Fatalf("expected shopper role, got %q", user.Role)
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Fatal("password must be stored hashed")
	}

	access, refresh, loggedIn, err := f.svc.Login(ctx, "asha@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("expected both tokens")
	}
	if loggedIn.ID != user.ID {
		t.Fatal("login returned a different account")
	}

	claims, err := f.svc.ValidateToken(access)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.register(t, "asha@example.com")

	if _, _, _, err := f.svc.Login(ctx, "asha@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := f.svc.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newUserFixture()
	f.register(t, "asha@example.com")

	_, err := f.svc.Register(context.Background(), "asha@example.com", "other-pass", "Another", "Asha")
	if !errors.Is(err, repository.ErrUserAlreadyExists) {
		t.Fatalf("expected ErrUserAlreadyExists, got %v", err)
	}
}

func TestBlockedAccountCannotLogIn(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	user := f.register(t, "asha@example.com")

	if _, err := f.svc.SetUserBlocked(ctx, user.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	if _, _, _, err := f.svc.Login(ctx, "asha@example.com", "s3cret-pass"); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}

	// Unblocking restores access.
	if _, err := f.svc.SetUserBlocked(ctx, user.ID, false); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if _, _, _, err := f.svc.Login(ctx, "asha@example.com", "s3cret-pass"); err != nil {
		t.Fatalf("login after unblock: %v", err)
	}
}

func TestBlockingRevokesRefreshTokens(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	user := f.register(t, "asha@example.com")

	_, refresh, _, err := f.svc.Login(ctx, "asha@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.RefreshToken(ctx, refresh); err != nil {
		t.Fatalf("refresh before block: %v", err)
	}

	if _, err := f.svc.SetUserBlocked(ctx, user.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}

	if _, err := f.svc.RefreshToken(ctx, refresh); err == nil {
		t.Fatal("blocked account's refresh token must stop working")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newUserFixture()
	ctx := context.Background()
	f.register(t, "asha@example.com")

	_, refresh, _, err := f.svc.Login(ctx, "asha@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.svc.Logout(ctx, refresh); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.RefreshToken(ctx, refresh); err == nil {
		t.Fatal("refresh token must be dead after logout")
	}
}

func TestValidateTokenRejectsForgeries(t *testing.T) {
	f := newUserFixture()
	f.register(t, "asha@example.com")

	access, _, _, err := f.svc.Login(context.Background(), "asha@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewUserService(newMockUserRepo(), newMockTokenRepo(), "a-different-secret")
	if _, err := other.ValidateToken(access); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
	if _, err := f.svc.ValidateToken("not.a.token"); err == nil {
		t.Fatal("malformed token must be rejected")
	}
}

func TestSetUserBlockedUnknownUser(t *testing.T) {
	f := newUserFixture()
	_, err := f.svc.SetUserBlocked(context.Background(), uuid.New(), true)
	if !errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
