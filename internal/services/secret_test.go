package services

import (
	"context"
	"testing"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
)

func newSecretService(t *testing.T) SecretService {
	t.Helper()
	conn, log := newTestDB(t)
	return NewSecretService(conn, log, repos.NewSecretRepo(conn, log))
}

func TestSecretSetOverwrites(t *testing.T) {
	svc := newSecretService(t)
	ctx := context.Background()

	if _, err := svc.Set(ctx, "openai_api_key", "sk-one"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := svc.Set(ctx, "openai_api_key", "sk-two"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	secret, err := svc.Get(ctx, "openai_api_key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if secret.Value != "sk-two" {
		t.Errorf("value = %q, want sk-two", secret.Value)
	}
}

func TestSecretGetUnknown(t *testing.T) {
	svc := newSecretService(t)
	_, err := svc.Get(context.Background(), "nope")
	if !apierr.IsNotFound(err) {
		t.Fatalf("unknown secret: err = %v, want not-found", err)
	}
}

func TestSecretDeleteIsIdempotent(t *testing.T) {
	svc := newSecretService(t)
	ctx := context.Background()

	if _, err := svc.Set(ctx, "key", "v"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := svc.Delete(ctx, "key"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.Delete(ctx, "key"); err != nil {
		t.Fatalf("second delete should succeed, got %v", err)
	}
	if err := svc.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("delete of unknown name should succeed, got %v", err)
	}
}
