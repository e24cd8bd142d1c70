package services

import (
	"context"
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/canonjson"
	"github.com/Arize-ai/phoenix-sub001/internal/logger"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// PromptVersionInput is an immutable snapshot of a prompt's template and
// invocation settings.
type PromptVersionInput struct {
	TemplateFormat       types.TemplateFormat `json:"template_format"`
	Template             json.RawMessage      `json:"template"`
	InvocationParameters json.RawMessage      `json:"invocation_parameters"`
	ModelProvider        string               `json:"model_provider"`
	ModelName            string               `json:"model_name"`
}

type PromptService interface {
	CreatePrompt(ctx context.Context, name string, description *string, initial PromptVersionInput) (*types.Prompt, *types.PromptVersion, error)
	AddVersion(ctx context.Context, promptName string, input PromptVersionInput) (*types.PromptVersion, error)
	GetVersions(ctx context.Context, promptName string) ([]*types.PromptVersion, error)
}

type promptService struct {
	db         *gorm.DB
	log        *logger.Logger
	promptRepo repos.PromptRepo
}

func NewPromptService(db *gorm.DB, baseLog *logger.Logger, promptRepo repos.PromptRepo) PromptService {
	return &promptService{
		db:         db,
		log:        baseLog.With("service", "PromptService"),
		promptRepo: promptRepo,
	}
}

func (ps *promptService) CreatePrompt(ctx context.Context, name string, description *string, initial PromptVersionInput) (*types.Prompt, *types.PromptVersion, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, apierr.Validationf("prompt name must be a non-empty string")
	}
	if err := validateVersionInput(&initial); err != nil {
		return nil, nil, err
	}
	var (
		prompt  *types.Prompt
		version *types.PromptVersion
	)
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := ps.promptRepo.GetByName(ctx, tx, name)
		if err != nil {
			return err
		}
		if existing != nil {
			return apierr.Validationf("a prompt named %q already exists", name)
		}
		prompt, err = ps.promptRepo.Create(ctx, tx, &types.Prompt{Name: name, Description: description})
		if err != nil {
			return err
		}
		version, err = ps.createVersion(ctx, tx, prompt.ID, initial)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	ps.log.Info("created prompt", "prompt_id", prompt.ID)
	return prompt, version, nil
}

func (ps *promptService) AddVersion(ctx context.Context, promptName string, input PromptVersionInput) (*types.PromptVersion, error) {
	if err := validateVersionInput(&input); err != nil {
		return nil, err
	}
	var version *types.PromptVersion
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prompt, err := ps.promptRepo.GetByName(ctx, tx, promptName)
		if err != nil {
			return err
		}
		if prompt == nil {
			return apierr.NotFoundf("prompt %q could not be found", promptName)
		}
		version, err = ps.createVersion(ctx, tx, prompt.ID, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (ps *promptService) GetVersions(ctx context.Context, promptName string) ([]*types.PromptVersion, error) {
	prompt, err := ps.promptRepo.GetByName(ctx, nil, promptName)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return nil, apierr.NotFoundf("prompt %q could not be found", promptName)
	}
	return ps.promptRepo.GetVersions(ctx, nil, prompt.ID)
}

func (ps *promptService) createVersion(ctx context.Context, tx *gorm.DB, promptID int64, input PromptVersionInput) (*types.PromptVersion, error) {
	template, err := canonjson.Canonicalize(input.Template)
	if err != nil {
		return nil, apierr.Validationf("prompt template must be valid JSON: %v", err)
	}
	var params []byte
	if len(input.InvocationParameters) > 0 {
		params, err = canonjson.Canonicalize(input.InvocationParameters)
		if err != nil {
			return nil, apierr.Validationf("invocation parameters must be valid JSON: %v", err)
		}
	}
	return ps.promptRepo.CreateVersion(ctx, tx, &types.PromptVersion{
		PromptID:             promptID,
		TemplateFormat:       input.TemplateFormat,
		Template:             template,
		InvocationParameters: params,
		ModelProvider:        input.ModelProvider,
		ModelName:            input.ModelName,
	})
}

func validateVersionInput(input *PromptVersionInput) error {
	switch input.TemplateFormat {
	case types.TemplateMustache, types.TemplateFString, types.TemplateNone, types.TemplateJSONPath:
	default:
		return apierr.Validationf("invalid template format %q", input.TemplateFormat)
	}
	if len(input.Template) == 0 {
		return apierr.Validationf("prompt template must be provided")
	}
	if strings.TrimSpace(input.ModelProvider) == "" || strings.TrimSpace(input.ModelName) == "" {
		return apierr.Validationf("model provider and model name must be non-empty")
	}
	return nil
}
