package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/service"
)

// batchServiceTimeout просторный дедлайн для батча: отправка последовательная,
// с паузой между контактами, в DefaultServiceTimeout она не уложится.
const batchServiceTimeout = 2 * time.Minute

type MessagesHandler struct {
	dispatch DispatchServicer
	ledger   LedgerServicer
}

func NewMessagesHandler(dispatch DispatchServicer, ledger LedgerServicer) *MessagesHandler {
	return &MessagesHandler{
		dispatch: dispatch,
		ledger:   ledger,
	}
}

type SendMessageParams struct {
	Phone      string `binding:"required,phone" json:"phone"`
	Message    string `binding:"required_without=TemplateID,max=4096"            json:"message"`
	MediaURL   string `binding:"omitempty,url"  json:"mediaUrl"`
	MediaType  string `binding:"omitempty,oneof=text image document video audio" json:"mediaType"`
	TemplateID string `binding:"omitempty,max=255" json:"templateId"`
}

type MessageLogResponse struct {
	ID          int64   `json:"ID"`
	PhoneNumber string  `json:"phone"`
	ExternalID  string  `json:"externalId,omitempty"`
	MessageType string  `json:"messageType"`
	Status      string  `json:"status"`
	Error       string  `json:"error,omitempty"`
	Cost        float64 `json:"cost"`
	CreatedAt   string  `json:"createdAt"`
}

func newMessageLogResponse(log *domain.MessageLog, cost decimal.Decimal) MessageLogResponse {
	response := MessageLogResponse{
		ID:          log.ID,
		PhoneNumber: log.PhoneNumber,
		MessageType: string(log.MessageType),
		Status:      string(log.Status),
		Error:       log.Error,
		Cost:        cost.InexactFloat64(),
		CreatedAt:   log.CreatedAt.Format(time.RFC3339),
	}
	if log.ExternalID != nil {
		response.ExternalID = *log.ExternalID
	}
	return response
}

// abortInsufficientCredits единая реакция на нехватку кредитов: 402 и публичное
// сообщение с балансом и требуемой суммой.
func abortInsufficientCredits(c *gin.Context, err *domain.InsufficientCreditsError) {
	c.AbortWithStatusJSON(http.StatusPaymentRequired, gin.H{
		"success":   false,
		"message":   "Insufficient credits",
		"available": err.Available.InexactFloat64(),
		"required":  err.Required.InexactFloat64(),
	})
}

// Send POST RouteGroup + SendRoute. Списывает стоимость сообщения и отправляет его
// через облачный API. Списание атомарно и происходит до отправки; ошибка провайдера
// списание не откатывает, попытка остается в логе со статусом failed.
func (h *MessagesHandler) Send(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params SendMessageParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	messageType := domain.MessageType(params.MediaType)
	if messageType == "" {
		messageType = domain.MessageTypeText
	}
	cost := messageType.Cost()

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	_, debitErr := h.ledger.Debit(reqCtx, service.DebitArgs{
		UserID:      currentUserID,
		Amount:      cost,
		Description: fmt.Sprintf("Message to %s", params.Phone),
	})
	if debitErr != nil {
		var insufficientErr *domain.InsufficientCreditsError
		if errors.As(debitErr, &insufficientErr) {
			abortInsufficientCredits(c, insufficientErr)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, debitErr).SetType(gin.ErrorTypePrivate)
		return
	}

	log, sendErr := h.dispatch.Send(reqCtx, currentUserID, service.SendArgs{
		Phone:      params.Phone,
		Body:       params.Message,
		MediaURL:   params.MediaURL,
		MediaType:  messageType,
		TemplateID: params.TemplateID,
	})
	if sendErr != nil {
		if log == nil {
			_ = c.AbortWithError(http.StatusInternalServerError, sendErr).SetType(gin.ErrorTypePrivate)
			return
		}
		_ = c.Error(sendErr).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Message sending failed",
			"log":     newMessageLogResponse(log, cost),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"log":     newMessageLogResponse(log, cost),
	})
}

type BatchContactParams struct {
	Phone     string `binding:"required,phone"     json:"phone"`
	Message   string `binding:"required,max=4096"  json:"message"`
	MediaURL  string `binding:"omitempty,url"      json:"mediaUrl"`
	MediaType string `binding:"omitempty,oneof=text image document video audio" json:"mediaType"`
}

type SendBatchParams struct {
	Contacts   []BatchContactParams `binding:"required,min=1,max=1000,dive" json:"contacts"`
	TemplateID string               `binding:"omitempty,max=255"            json:"templateId"`
}

type BatchItemResponse struct {
	Phone      string `json:"phone"`
	Status     string `json:"status"`
	ExternalID string `json:"externalId,omitempty"`
	Error      string `json:"error,omitempty"`
}

// SendBatch POST RouteGroup + SendBatchRoute. Суммарная стоимость батча списывается
// одним платежом до отправки, затем контакты отправляются последовательно. Неудача
// по отдельному контакту батч не прерывает и отдельно не возмещается.
func (h *MessagesHandler) SendBatch(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params SendBatchParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	totalCost := decimal.Zero
	contacts := make([]service.BatchContact, len(params.Contacts))
	for i, contact := range params.Contacts {
		messageType := domain.MessageType(contact.MediaType)
		if messageType == "" {
			messageType = domain.MessageTypeText
		}
		totalCost = totalCost.Add(messageType.Cost())
		contacts[i] = service.BatchContact{
			Phone:     contact.Phone,
			Message:   contact.Message,
			MediaURL:  contact.MediaURL,
			MediaType: messageType,
		}
	}

	reqCtx, cancel := context.WithTimeout(c, batchServiceTimeout)
	defer cancel()

	_, debitErr := h.ledger.Debit(reqCtx, service.DebitArgs{
		UserID:      currentUserID,
		Amount:      totalCost,
		Description: fmt.Sprintf("Batch of %d messages", len(contacts)),
	})
	if debitErr != nil {
		var insufficientErr *domain.InsufficientCreditsError
		if errors.As(debitErr, &insufficientErr) {
			abortInsufficientCredits(c, insufficientErr)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, debitErr).SetType(gin.ErrorTypePrivate)
		return
	}

	result, batchErr := h.dispatch.SendBatch(reqCtx, currentUserID, contacts, params.TemplateID)
	if batchErr != nil && result == nil {
		_ = c.AbortWithError(http.StatusInternalServerError, batchErr).SetType(gin.ErrorTypePrivate)
		return
	}

	items := make([]BatchItemResponse, len(result.Results))
	for i, item := range result.Results {
		items[i] = BatchItemResponse{
			Phone:      item.Phone,
			Status:     string(item.Status),
			ExternalID: item.ExternalID,
			Error:      item.Error,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"successCount": result.SuccessCount,
		"failureCount": result.FailureCount,
		"totalCost":    totalCost.InexactFloat64(),
		"results":      items,
	})
}

type BridgeSendParams struct {
	Phone     string `binding:"required,phone"    json:"phone"`
	Message   string `binding:"required,max=4096" json:"message"`
	SessionID string `binding:"omitempty,max=255" json:"sessionId"`
}

// SendBridge POST RouteGroup + SendBridgeRoute. Отправка текстового сообщения через
// локальный мост автоматизации. Тарифицируется как текст.
func (h *MessagesHandler) SendBridge(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	var params BridgeSendParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
		return
	}

	cost := domain.MessageTypeText.Cost()

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	_, debitErr := h.ledger.Debit(reqCtx, service.DebitArgs{
		UserID:      currentUserID,
		Amount:      cost,
		Description: fmt.Sprintf("Bridge message to %s", params.Phone),
	})
	if debitErr != nil {
		var insufficientErr *domain.InsufficientCreditsError
		if errors.As(debitErr, &insufficientErr) {
			abortInsufficientCredits(c, insufficientErr)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, debitErr).SetType(gin.ErrorTypePrivate)
		return
	}

	log, sendErr := h.dispatch.SendViaBridge(reqCtx, currentUserID, service.BridgeSendArgs{
		Phone:     params.Phone,
		Message:   params.Message,
		SessionID: params.SessionID,
	})
	if sendErr != nil {
		if log == nil {
			_ = c.AbortWithError(http.StatusInternalServerError, sendErr).SetType(gin.ErrorTypePrivate)
			return
		}
		_ = c.Error(sendErr).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Message sending failed",
			"log":     newMessageLogResponse(log, cost),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Message sent successfully",
		"log":     newMessageLogResponse(log, cost),
	})
}

// Status GET RouteGroup + MessageStatusRoute. Актуальный статус доставки сообщения.
// Чужие сообщения для не-админа неотличимы от несуществующих.
func (h *MessagesHandler) Status(c *gin.Context) {
	currentUserID := getUserIDFromContext(c)

	logID, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
	if parseErr != nil || logID <= 0 {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	log, status, err := h.dispatch.MessageStatus(reqCtx, logID)
	if err != nil && log == nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
		return
	}

	if log.UserID != currentUserID && getUserRoleFromContext(c) != domain.RoleAdmin {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	if err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": "Status check failed",
			"log":     newMessageLogResponse(log, log.MessageType.Cost()),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"status":    status.Status,
		"timestamp": status.Timestamp,
		"log":       newMessageLogResponse(log, log.MessageType.Cost()),
	})
}
