package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// currentUserID достаёт пользователя, положенного auth-мидлварью
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := v.(uuid.UUID)
	return userID, ok
}

func currentUserName(c *gin.Context) string {
	v, ok := c.Get("user_name")
	if !ok {
		return ""
	}
	name, _ := v.(string)
	return name
}
