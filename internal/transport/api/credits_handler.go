package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/service"
)

type CreditsHandler struct {
	svs LedgerServicer
}

func NewCreditsHandler(svs LedgerServicer) *CreditsHandler {
	return &CreditsHandler{
		svs: svs,
	}
}

// Balance GET RouteGroup + BalanceRoute. Текущий баланс юзера, выведенный из леджера.
func (h *CreditsHandler) Balance(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.svs.Balance(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": balance.InexactFloat64(),
	})
}

type HistoryQueryParams struct {
	Limit  uint `form:"limit"  binding:"omitempty,max=500"`
	Offset uint `form:"offset"`
}

type TransactionResponseItem struct {
	ID          int64   `json:"ID"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	ReferenceID string  `json:"referenceId,omitempty"`
	Description string  `json:"description,omitempty"`
	CreatedAt   string  `json:"createdAt"`
}

// History GET RouteGroup + CreditHistoryRoute. Записи леджера юзера, новые первыми.
func (h *CreditsHandler) History(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params HistoryQueryParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.svs.History(reqCtx, currentUserID, params.Limit, params.Offset)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]TransactionResponseItem, len(transactions))
	for i, transaction := range transactions {
		response[i] = TransactionResponseItem{
			ID:          transaction.ID,
			Amount:      transaction.Amount.InexactFloat64(),
			Type:        string(transaction.Type),
			ReferenceID: transaction.ReferenceID,
			Description: transaction.Description,
			CreatedAt:   transaction.CreatedAt.Format(time.RFC3339),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"transactions": response,
	})
}

type CreditAddParams struct {
	UserID      int64           `binding:"required,gt=0" json:"userId"`
	Amount      decimal.Decimal `binding:"required"      json:"amount"`
	ReferenceID string          `binding:"max=255"       json:"referenceId"`
	Description string          `binding:"max=255"       json:"description"`
}

// Add POST RouteGroup + CreditAddRoute. Ручное начисление кредитов, только для админа.
func (h *CreditsHandler) Add(c *gin.Context) {
	var params CreditAddParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transaction, err := h.svs.Credit(reqCtx, service.CreditArgs{
		UserID:      params.UserID,
		Amount:      params.Amount,
		Type:        domain.TransactionPurchase,
		ReferenceID: params.ReferenceID,
		Description: params.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNonPositiveAmount):
			_ = c.AbortWithError(http.StatusBadRequest, errors.New("amount must be positive")).
				SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrRecordNotFound):
			c.AbortWithStatus(http.StatusNotFound)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Credits added successfully",
		"transaction": TransactionResponseItem{
			ID:          transaction.ID,
			Amount:      transaction.Amount.InexactFloat64(),
			Type:        string(transaction.Type),
			ReferenceID: transaction.ReferenceID,
			Description: transaction.Description,
			CreatedAt:   transaction.CreatedAt.Format(time.RFC3339),
		},
	})
}
