package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (ah *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	user, err := ah.authService.RegisterLocalUser(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondCreated(c, gin.H{"user": user})
}

func (ah *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondErr(c, errInvalidBody(err))
		return
	}
	token, err := ah.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"access_token": token})
}
