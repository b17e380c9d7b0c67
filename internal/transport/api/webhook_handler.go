package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

// SignatureHeader заголовок с HMAC-SHA256 подписью сырого тела колбека.
const SignatureHeader = "X-Hub-Signature-256"

type WebhookHandler struct {
	dispatch DispatchServicer
}

func NewWebhookHandler(dispatch DispatchServicer) *WebhookHandler {
	return &WebhookHandler{
		dispatch: dispatch,
	}
}

// Provider POST RouteGroup + ProviderWebhook. Статусный колбек провайдера.
// Подпись проверяется по сырому телу до какого-либо разбора; неверная подпись
// дает 401 и ни одной мутации. Валидная подпись всегда подтверждается 200,
// даже если нагрузка непонятна, иначе провайдер будет бесконечно ретраить.
func (h *WebhookHandler) Provider(c *gin.Context) {
	rawBody, readErr := c.GetRawData()
	if readErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, readErr).SetType(gin.ErrorTypeBind)
		return
	}

	signature := strings.TrimPrefix(c.GetHeader(SignatureHeader), "sha256=")

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	if err := h.dispatch.HandleWebhook(reqCtx, rawBody, signature); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid signature",
			})
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
