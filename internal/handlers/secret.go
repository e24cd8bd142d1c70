package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type SecretHandler struct {
	secretService services.SecretService
}

func NewSecretHandler(secretService services.SecretService) *SecretHandler {
	return &SecretHandler{secretService: secretService}
}

func (sh *SecretHandler) Set(c *gin.Context) {
	var req struct {
		Name  string `json:"name" binding:"required"`
		Value string `json:"value" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	secret, err := sh.secretService.Set(c.Request.Context(), req.Name, req.Value)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"name": secret.Name, "updated_at": secret.UpdatedAt})
}

func (sh *SecretHandler) Delete(c *gin.Context) {
	if err := sh.secretService.Delete(c.Request.Context(), c.Param("name")); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
