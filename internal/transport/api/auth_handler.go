package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/service"
	"github.com/fsdevblog/bulkgate/internal/service/tokens"
)

type AuthHandler struct {
	userService UserServicer
}

func NewAuthHandler(userService UserServicer) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

type UserRegisterParams struct {
	Username string `binding:"required,min=3,max=30"   json:"username"`
	Email    string `binding:"required,email,max=255"  json:"email"`
	Password string `binding:"required,min=8,max=72"   json:"password"`
	Phone    string `binding:"omitempty,phone"         json:"phone"`
	Role     string `binding:"omitempty,oneof=user reseller" json:"role"`
	ParentID *int64 `binding:"omitempty,gt=0"          json:"parentId"`
}

type UserResponse struct {
	ID        int64     `json:"ID"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Credits   float64   `json:"credits"`
	APIKey    string    `json:"apiKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Role:      string(user.Role),
		Credits:   user.Credits.InexactFloat64(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// Register POST RouteGroup + RegisterRoute. Регистрирует пользователя со стартовыми
// кредитами его роли. Занятые юзернейм или email дают 400 с публичным сообщением.
func (h *AuthHandler) Register(c *gin.Context) {
	var params UserRegisterParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		var valErrs validator.ValidationErrors
		if errors.As(bindErr, &valErrs) {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"message": valErrs.Error(),
			})
			return
		}
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, createErr := h.userService.Register(ctx, service.RegisterUserArgs{
		Username: params.Username,
		Email:    params.Email,
		Password: params.Password,
		Phone:    params.Phone,
		Role:     domain.RoleType(params.Role),
		ParentID: params.ParentID,
	})
	if createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateKey) {
			_ = c.AbortWithError(http.StatusBadRequest, errors.New("email or username already exists")).
				SetType(gin.ErrorTypePublic)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, createErr).
			SetType(gin.ErrorTypePrivate)
		return
	}

	response := newUserResponse(user)
	// api ключ показывается единственный раз, при регистрации.
	response.APIKey = user.APIKey
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    response,
	})
}

type UserLoginParams struct {
	Login    string `binding:"required,min=3,max=255" json:"login"`
	Password string `binding:"required,min=8,max=72"  json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре логин (юзернейм или
// email) / пароль. Неверные учетные данные и приостановленный аккаунт дают 401.
func (h *AuthHandler) Login(c *gin.Context) {
	var params UserLoginParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, token, err := h.userService.Login(ctx, service.LoginUserArgs{
		Login:    params.Login,
		Password: params.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrPasswordMissMatch):
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid credentials",
			})
		case errors.Is(err, domain.ErrUserSuspended):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Account is suspended or inactive",
			})
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.Header("Authorization", "Bearer "+token)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    newUserResponse(user),
	})
}

type RefreshParams struct {
	Token string `binding:"required" json:"token"`
}

// Refresh POST RouteGroup + RefreshRoute. Перевыпускает действительный токен с новым
// сроком. Истекший или испорченный токен дает 401.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var params RefreshParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	token, err := h.userService.RefreshToken(params.Token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) || errors.Is(err, tokens.ErrTokenInvalid) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

// Logout POST RouteGroup + LogoutRoute. Сессии stateless, серверного состояния нет:
// клиент просто забывает токен.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out successfully",
	})
}

// Me GET RouteGroup + MeRoute. Профиль текущего юзера.
func (h *AuthHandler) Me(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userService.GetByID(ctx, currentUserID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    newUserResponse(user),
	})
}
