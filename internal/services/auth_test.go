package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

func newAuthService(t *testing.T) AuthService {
	t.Helper()
	conn, log := newTestDB(t)
	return NewAuthService(conn, log, repos.NewUserRepo(conn, log), "test-secret", time.Hour)
}

func TestRegisterAndLoginLocalUser(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.RegisterLocalUser(ctx, "alice", "Alice@Example.com", "hunter2secure")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.AuthMethod != types.AuthLocal {
		t.Errorf("auth method = %s", user.AuthMethod)
	}
	if user.Email == nil || *user.Email != "alice@example.com" {
		t.Errorf("email = %v, want lowercased", user.Email)
	}

	token, err := svc.Login(ctx, "alice@example.com", "hunter2secure")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	got, err := svc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("validated user id = %d, want %d", got.ID, user.ID)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "wrong-password"); !errors.Is(err, apierr.ErrUnauthorized) {
		t.Fatalf("wrong password: err = %v, want unauthorized", err)
	}
}

func TestRegisterLocalUserRejectsShortPassword(t *testing.T) {
	svc := newAuthService(t)
	_, err := svc.RegisterLocalUser(context.Background(), "bob", "bob@example.com", "short")
	if !apierr.IsValidation(err) {
		t.Fatalf("short password should fail validation, got %v", err)
	}
}

func TestRegisterOAuth2UserRejectsReservedClientID(t *testing.T) {
	svc := newAuthService(t)
	_, err := svc.RegisterOAuth2User(context.Background(), "carol", "carol@example.com",
		migrations.ReservedLDAPClientID, "ext-1")
	if !apierr.IsValidation(err) {
		t.Fatalf("reserved client id should fail validation, got %v", err)
	}
}

func TestEnsureLDAPUserCreatesThenRefreshes(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	user, err := svc.EnsureLDAPUser(ctx, LDAPIdentity{UniqueID: "uid=dave", Username: "dave"})
	if err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if user.AuthMethod != types.AuthLDAP {
		t.Errorf("auth method = %s", user.AuthMethod)
	}
	if user.Email != nil {
		t.Errorf("email = %v, want nil for a directory user without one", user.Email)
	}

	email := "dave@example.com"
	again, err := svc.EnsureLDAPUser(ctx, LDAPIdentity{UniqueID: "uid=dave", Username: "dave", Email: &email})
	if err != nil {
		t.Fatalf("second ensure failed: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("second ensure created a new row: %d != %d", again.ID, user.ID)
	}
	if again.Email == nil || *again.Email != email {
		t.Errorf("email not refreshed: %v", again.Email)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthService(t)
	if _, err := svc.ValidateToken(context.Background(), "not-a-jwt"); err == nil {
		t.Fatal("garbage token validated")
	}
}
