package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Arize-ai/phoenix-sub001/internal/apierr"
	"github.com/Arize-ai/phoenix-sub001/internal/types"
)

// UserContextKey is where the auth middleware stores the authenticated user.
const UserContextKey = "current_user"

func currentUserID(c *gin.Context) *int64 {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*types.User)
	if !ok {
		return nil
	}
	return &user.ID
}

func errInvalidBody(err error) error {
	return apierr.Validationf("invalid request body: %v", err)
}
