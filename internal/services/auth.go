package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/migrations"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// LDAPIdentity is what the directory asserts about a user at sign-in.
// Email can legitimately be absent.
type LDAPIdentity struct {
	UniqueID string
	Username string
	Email    *string
}

type AuthService interface {
	RegisterLocalUser(ctx context.Context, username, email, password string) (*types.User, error)
	RegisterOAuth2User(ctx context.Context, username, email, clientID, userID string) (*types.User, error)
	// EnsureLDAPUser creates or refreshes the row for a directory user,
	// keyed on the directory's stable unique id.
	EnsureLDAPUser(ctx context.Context, identity LDAPIdentity) (*types.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, tokenString string) (*types.User, error)
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userRepo repos.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	return &authService{
		db:           db,
		log:          baseLog.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) RegisterLocalUser(ctx context.Context, username, email, password string) (*types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return nil, apierr.Validationf("username and email must be non-empty")
	}
	if len(password) < 8 {
		return nil, apierr.Validationf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	var user *types.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := as.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return err
		}
		if exists {
			return apierr.Validationf("a user with email %q already exists", email)
		}
		user, err = as.userRepo.Create(ctx, tx, &types.User{
			Username:     username,
			Email:        &email,
			AuthMethod:   types.AuthLocal,
			PasswordHash: hash,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("registered user", "user_id", user.ID, "auth_method", string(user.AuthMethod))
	return user, nil
}

func (as *authService) RegisterOAuth2User(ctx context.Context, username, email, clientID, userID string) (*types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" {
		return nil, apierr.Validationf("username and email must be non-empty")
	}
	if clientID == "" || userID == "" {
		return nil, apierr.Validationf("oauth2 client id and user id must be non-empty")
	}
	if clientID == migrations.ReservedLDAPClientID {
		return nil, apierr.Validationf("oauth2 client id %q is reserved", clientID)
	}
	var user *types.User
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := as.userRepo.EmailExists(ctx, tx, email)
		if err != nil {
			return err
		}
		if exists {
			return apierr.Validationf("a user with email %q already exists", email)
		}
		user, err = as.userRepo.Create(ctx, tx, &types.User{
			Username:       username,
			Email:          &email,
			AuthMethod:     types.AuthOAuth2,
			OAuth2ClientID: &clientID,
			OAuth2UserID:   &userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("registered user", "user_id", user.ID, "auth_method", string(user.AuthMethod))
	return user, nil
}

func (as *authService) EnsureLDAPUser(ctx context.Context, identity LDAPIdentity) (*types.User, error) {
	if strings.TrimSpace(identity.UniqueID) == "" {
		return nil, apierr.Validationf("ldap unique id must be non-empty")
	}
	var user *types.User
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := as.userRepo.GetByLDAPUniqueID(ctx, tx, identity.UniqueID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Username = identity.Username
			existing.Email = normalizeOptionalEmail(identity.Email)
			user, err = as.userRepo.Update(ctx, tx, existing)
			return err
		}
		uniqueID := identity.UniqueID
		user, err = as.userRepo.Create(ctx, tx, &types.User{
			Username:     identity.Username,
			Email:        normalizeOptionalEmail(identity.Email),
			AuthMethod:   types.AuthLDAP,
			LDAPUniqueID: &uniqueID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (as *authService) Login(ctx context.Context, email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := as.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return "", err
	}
	if user == nil || user.AuthMethod != types.AuthLocal {
		return "", apierr.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return "", apierr.ErrUnauthorized
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub": user.ID,
		"iat": now.Unix(),
		"exp": now.Add(as.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", err
	}
	return signed, nil
}

func (as *authService) ValidateToken(ctx context.Context, tokenString string) (*types.User, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierr.ErrUnauthorized
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierr.ErrUnauthorized
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return nil, apierr.ErrUnauthorized
	}
	user, err := as.userRepo.GetByID(ctx, nil, int64(sub))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierr.ErrUnauthorized
	}
	return user, nil
}

func normalizeOptionalEmail(email *string) *string {
	if email == nil {
		return nil
	}
	normalized := strings.ToLower(strings.TrimSpace(*email))
	if normalized == "" {
		return nil
	}
	return &normalized
}
