package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type SecretService interface {
	Set(ctx context.Context, name, value string) (*types.Secret, error)
	Get(ctx context.Context, name string) (*types.Secret, error)
	// Delete is idempotent: removing a name that was never stored, or
	// was already removed, succeeds.
	Delete(ctx context.Context, name string) error
}

type secretService struct {
	db         *gorm.DB
	log        *logger.Logger
	secretRepo repos.SecretRepo
}

func NewSecretService(db *gorm.DB, baseLog *logger.Logger, secretRepo repos.SecretRepo) SecretService {
	return &secretService{
		db:         db,
		log:        baseLog.With("service", "SecretService"),
		secretRepo: secretRepo,
	}
}

func (ss *secretService) Set(ctx context.Context, name, value string) (*types.Secret, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apierr.Validationf("secret name must be a non-empty string")
	}
	secret, err := ss.secretRepo.Upsert(ctx, nil, &types.Secret{Name: name, Value: value})
	if err != nil {
		return nil, err
	}
	ss.log.Info("stored secret", "name", name)
	return secret, nil
}

func (ss *secretService) Get(ctx context.Context, name string) (*types.Secret, error) {
	secret, err := ss.secretRepo.GetByName(ctx, nil, name)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, apierr.NotFoundf("secret %q could not be found", name)
	}
	return secret, nil
}

func (ss *secretService) Delete(ctx context.Context, name string) error {
	removed, err := ss.secretRepo.DeleteByName(ctx, nil, name)
	if err != nil {
		return err
	}
	if removed {
		ss.log.Info("deleted secret", "name", name)
	}
	return nil
}
