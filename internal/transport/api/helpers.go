package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/transport/api/middlewares"
)

// getUserIDFromContext берет из контекста gin ID текущего юзера. ID устанавливается в
// middlewares.AuthRequired. В случае, если значения в контексте нет или ошибка
// утверждения типа - вернется 0.
func getUserIDFromContext(c *gin.Context) int64 {
	userIDValue, exist := c.Get(middlewares.CurrentUserIDKey)
	if !exist {
		return 0
	}
	userID, ok := userIDValue.(int64)
	if !ok {
		return 0
	}
	return userID
}

// getUserRoleFromContext берет из контекста gin роль текущего юзера.
func getUserRoleFromContext(c *gin.Context) domain.RoleType {
	roleValue, exist := c.Get(middlewares.CurrentUserRoleKey)
	if !exist {
		return ""
	}
	role, ok := roleValue.(domain.RoleType)
	if !ok {
		return ""
	}
	return role
}
