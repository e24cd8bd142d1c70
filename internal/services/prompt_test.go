package services

import (
	"context"
	"testing"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/repos"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

func newPromptService(t *testing.T) PromptService {
	t.Helper()
	conn, log := newTestDB(t)
	return NewPromptService(conn, log, repos.NewPromptRepo(conn, log))
}

func TestCreatePromptWithInitialVersion(t *testing.T) {
	svc := newPromptService(t)
	ctx := context.Background()

	prompt, version, err := svc.CreatePrompt(ctx, "summarize", nil, PromptVersionInput{
		TemplateFormat: types.TemplateMustache,
		Template:       raw(`{"messages": [{"role": "user", "content": "Summarize {{text}}"}]}`),
		ModelProvider:  "openai",
		ModelName:      "gpt-4o",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if prompt.Name != "summarize" {
		t.Errorf("name = %q", prompt.Name)
	}
	if version.TemplateFormat != types.TemplateMustache {
		t.Errorf("format = %s", version.TemplateFormat)
	}
}

func TestAddVersionAcceptsAllFormats(t *testing.T) {
	svc := newPromptService(t)
	ctx := context.Background()

	if _, _, err := svc.CreatePrompt(ctx, "p", nil, PromptVersionInput{
		TemplateFormat: types.TemplateNone,
		Template:       raw(`{"text": "static prompt"}`),
		ModelProvider:  "openai",
		ModelName:      "gpt-4o",
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, format := range []types.TemplateFormat{
		types.TemplateMustache, types.TemplateFString, types.TemplateJSONPath,
	} {
		if _, err := svc.AddVersion(ctx, "p", PromptVersionInput{
			TemplateFormat:       format,
			Template:             raw(`{"text": "t"}`),
			InvocationParameters: raw(`{"temperature": 0.5}`),
			ModelProvider:        "openai",
			ModelName:            "gpt-4o",
		}); err != nil {
			t.Fatalf("add version with format %s failed: %v", format, err)
		}
	}

	versions, err := svc.GetVersions(ctx, "p")
	if err != nil {
		t.Fatalf("get versions: %v", err)
	}
	if len(versions) != 4 {
		t.Fatalf("got %d versions, want 4", len(versions))
	}
}

func TestAddVersionRejectsUnknownFormatAndPrompt(t *testing.T) {
	svc := newPromptService(t)
	ctx := context.Background()

	if _, _, err := svc.CreatePrompt(ctx, "p", nil, PromptVersionInput{
		TemplateFormat: types.TemplateNone,
		Template:       raw(`{}`),
		ModelProvider:  "openai",
		ModelName:      "gpt-4o",
	}); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := svc.AddVersion(ctx, "p", PromptVersionInput{
		TemplateFormat: types.TemplateFormat("JINJA"),
		Template:       raw(`{}`),
		ModelProvider:  "openai",
		ModelName:      "gpt-4o",
	})
	if !apierr.IsValidation(err) {
		t.Fatalf("unknown format should fail validation, got %v", err)
	}

	_, err = svc.AddVersion(ctx, "missing", PromptVersionInput{
		TemplateFormat: types.TemplateNone,
		Template:       raw(`{}`),
		ModelProvider:  "openai",
		ModelName:      "gpt-4o",
	})
	if !apierr.IsNotFound(err) {
		t.Fatalf("unknown prompt should be not-found, got %v", err)
	}
}
