package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondErr maps service errors onto HTTP statuses.
func RespondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case apierr.IsValidation(err):
		status = http.StatusUnprocessableEntity
		code = "invalid_request"
	case apierr.IsNotFound(err):
		status = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, apierr.ErrUnauthorized):
		status = http.StatusUnauthorized
		code = "unauthorized"
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: err.Error(), Code: code}})
}
