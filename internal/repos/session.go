package repos

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, session *types.ProjectSession) (*types.ProjectSession, error)
	Update(ctx context.Context, tx *gorm.DB, session *types.ProjectSession) (*types.ProjectSession, error)
	GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.ProjectSession, error)
	// GetBySessionID returns nil without error when the session id is
	// unknown.
	GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.ProjectSession, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (sr *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *types.ProjectSession) (*types.ProjectSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *sessionRepo) Update(ctx context.Context, tx *gorm.DB, session *types.ProjectSession) (*types.ProjectSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	if err := transaction.WithContext(ctx).Save(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, id int64) (*types.ProjectSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var session types.ProjectSession
	if err := transaction.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (sr *sessionRepo) GetBySessionID(ctx context.Context, tx *gorm.DB, sessionID string) (*types.ProjectSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}
	var session types.ProjectSession
	err := transaction.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}
