package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

type CommissionsHandler struct {
	svs         CommissionServicer
	userService UserServicer
}

func NewCommissionsHandler(svs CommissionServicer, userService UserServicer) *CommissionsHandler {
	return &CommissionsHandler{
		svs:         svs,
		userService: userService,
	}
}

// Compute GET RouteGroup + CommissionCompute. Предварительный расчет комиссии за
// скользящее окно, без выплаты. Реселлер видит только собственных клиентов, чужие
// для него неотличимы от несуществующих.
func (h *CommissionsHandler) Compute(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	customerID, parseErr := strconv.ParseInt(c.Param("customerID"), 10, 64)
	if parseErr != nil || customerID <= 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	customer, customerErr := h.userService.GetByID(reqCtx, customerID)
	if customerErr != nil {
		if errors.Is(customerErr, domain.ErrRecordNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, customerErr).SetType(gin.ErrorTypePrivate)
		return
	}

	if getUserRoleFromContext(c) != domain.RoleAdmin {
		if customer.ParentID == nil || *customer.ParentID != currentUserID {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
	}

	report, err := h.svs.Compute(reqCtx, customerID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"customerId":       customerID,
		"messageCount":     report.MessageCount,
		"totalCost":        report.TotalCost.InexactFloat64(),
		"commissionAmount": report.CommissionAmount.InexactFloat64(),
	})
}

type CommissionPayParams struct {
	CustomerID int64 `binding:"required,gt=0" json:"customerId"`
}

type CommissionResponseItem struct {
	ID               int64   `json:"ID"`
	CustomerID       int64   `json:"customerId"`
	MessageCount     int64   `json:"messageCount"`
	TotalCost        float64 `json:"totalCost"`
	CommissionAmount float64 `json:"commissionAmount"`
	Period           string  `json:"period"`
	CreatedAt        string  `json:"createdAt"`
}

func newCommissionResponseItem(record *domain.CommissionRecord) CommissionResponseItem {
	return CommissionResponseItem{
		ID:               record.ID,
		CustomerID:       record.CustomerID,
		MessageCount:     record.MessageCount,
		TotalCost:        record.TotalCost.InexactFloat64(),
		CommissionAmount: record.CommissionAmount.InexactFloat64(),
		Period:           record.Period,
		CreatedAt:        record.CreatedAt.Format(time.RFC3339),
	}
}

// Pay POST RouteGroup + CommissionPayRoute. Выплата комиссии за клиента. Повторная
// выплата за тот же период дает 409, нулевая комиссия 400, чужой клиент 403.
func (h *CommissionsHandler) Pay(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params CommissionPayParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	record, err := h.svs.Pay(reqCtx, currentUserID, params.CustomerID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			c.AbortWithStatus(http.StatusNotFound)
		case errors.Is(err, domain.ErrOwnerConflict):
			_ = c.AbortWithError(http.StatusForbidden, errors.New("customer does not belong to this reseller")).
				SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrNothingToPay):
			_ = c.AbortWithError(http.StatusBadRequest, errors.New("no commission to pay for this period")).
				SetType(gin.ErrorTypePublic)
		case errors.Is(err, domain.ErrDuplicateKey):
			_ = c.AbortWithError(http.StatusConflict, errors.New("commission for this period already paid")).
				SetType(gin.ErrorTypePublic)
		default:
			_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Commission paid successfully",
		"commission": newCommissionResponseItem(record),
	})
}

// Index GET RouteGroup + CommissionsRoute. Выплаты текущего реселлера, новые первыми.
func (h *CommissionsHandler) Index(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	records, err := h.svs.History(reqCtx, currentUserID)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	response := make([]CommissionResponseItem, len(records))
	for i := range records {
		response[i] = newCommissionResponseItem(&records[i])
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"commissions": response,
	})
}
