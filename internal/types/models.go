package types

import (
	"time"

	"gorm.io/datatypes"
)

// GenerativeModel metadata, cached in-process by the model cache daemon.
// Soft-deleted rows keep their deleted_at so pollers can drop them from the
// cache on the next pass.
type GenerativeModel struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"not null;column:name" json:"name"`
	Provider    string     `gorm:"not null;column:provider" json:"provider"`
	NamePattern string     `gorm:"not null;column:name_pattern" json:"name_pattern"`
	IsBuiltIn   bool       `gorm:"not null;default:false;column:is_built_in" json:"is_built_in"`
	StartTime   *time.Time `gorm:"column:start_time" json:"start_time,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	TokenPrices []TokenPrice `gorm:"foreignKey:ModelID" json:"token_prices,omitempty"`
}

func (GenerativeModel) TableName() string { return "generative_models" }

type TokenPrice struct {
	ID        int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelID   int64   `gorm:"not null;column:model_id" json:"model_id"`
	TokenType string  `gorm:"not null;column:token_type" json:"token_type"`
	IsPrompt  bool    `gorm:"not null;column:is_prompt" json:"is_prompt"`
	BaseRate  float64 `gorm:"not null;column:base_rate" json:"base_rate"`
}

func (TokenPrice) TableName() string { return "token_prices" }

type Prompt struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Description *string   `gorm:"column:description" json:"description"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Prompt) TableName() string { return "prompts" }

type PromptVersion struct {
	ID                   int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PromptID             int64          `gorm:"not null;index;column:prompt_id" json:"prompt_id"`
	TemplateFormat       TemplateFormat `gorm:"not null;column:template_format" json:"template_format"`
	Template             datatypes.JSON `gorm:"not null;column:template" json:"template"`
	InvocationParameters datatypes.JSON `gorm:"column:invocation_parameters" json:"invocation_parameters"`
	ModelProvider        string         `gorm:"not null;column:model_provider" json:"model_provider"`
	ModelName            string         `gorm:"not null;column:model_name" json:"model_name"`
	CreatedAt            time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (PromptVersion) TableName() string { return "prompt_versions" }
