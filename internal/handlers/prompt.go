package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type PromptHandler struct {
	promptService services.PromptService
}

func NewPromptHandler(promptService services.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

func (ph *PromptHandler) Create(c *gin.Context) {
	var req struct {
		Name        string                      `json:"name" binding:"required"`
		Description *string                     `json:"description"`
		Version     services.PromptVersionInput `json:"version" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	prompt, version, err := ph.promptService.CreatePrompt(c.Request.Context(), req.Name, req.Description, req.Version)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{"prompt": prompt, "version": version})
}

func (ph *PromptHandler) AddVersion(c *gin.Context) {
	var req services.PromptVersionInput
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	version, err := ph.promptService.AddVersion(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{"version": version})
}

func (ph *PromptHandler) GetVersions(c *gin.Context) {
	versions, err := ph.promptService.GetVersions(c.Request.Context(), c.Param("name"))
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"data": versions})
}
