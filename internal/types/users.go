package types

import (
	"time"
)

// User carries exactly one authentication method. The per-method field
// constraints live in the migration chain as named CHECK constraints keyed
// off auth_method; the model deliberately keeps every method's columns
// nullable so it maps onto every historical schema shape.
type User struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string     `gorm:"uniqueIndex;not null;column:username" json:"username"`
	Email          *string    `gorm:"column:email" json:"email"`
	AuthMethod     AuthMethod `gorm:"not null;column:auth_method" json:"auth_method"`
	PasswordHash   []byte     `gorm:"column:password_hash" json:"-"`
	PasswordSalt   []byte     `gorm:"column:password_salt" json:"-"`
	OAuth2ClientID *string    `gorm:"column:oauth2_client_id" json:"-"`
	OAuth2UserID   *string    `gorm:"column:oauth2_user_id" json:"-"`
	LDAPUniqueID   *string    `gorm:"column:ldap_unique_id" json:"-"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "users" }

// Secret is a named opaque value. Deleting a secret is idempotent, unlike
// annotation deletion.
type Secret struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Value     string    `gorm:"not null;column:value" json:"-"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Secret) TableName() string { return "secrets" }
