package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

// batchPace фиксированная пауза между сообщениями батча, требование рейт-лимита провайдера.
const batchPace = 100 * time.Millisecond

const defaultCountryCodeDigits = 10

// DispatchService отправляет сообщения через провайдера (или локальный мост), пишет
// каждую попытку в message_logs и применяет статусные колбеки провайдера к этим строкам.
// Статусы переходят только вперед по порядку queued < sent < delivered < read,
// failed терминальный; сам сервис статусы никогда не выдумывает.
type DispatchService struct {
	msgRepo       MessageLogRepository
	provider      ProviderClient
	bridge        BridgeClient
	l             *logrus.Entry
	countryCode   string
	webhookSecret []byte
}

type DispatchServiceArgs struct {
	Provider      ProviderClient
	Bridge        BridgeClient
	Logger        *logrus.Logger
	CountryCode   string
	WebhookSecret []byte
}

func NewDispatchService(u uow.UOW, args DispatchServiceArgs) (*DispatchService, error) {
	msgRepo, msgRepoErr := uow.GetRepositoryAs[MessageLogRepository](u, uow.RepositoryName(repoargs.MessageLogRepoName))
	if msgRepoErr != nil {
		return nil, msgRepoErr
	}
	return &DispatchService{
		msgRepo:       msgRepo,
		provider:      args.Provider,
		bridge:        args.Bridge,
		l:             args.Logger.WithField("component", "dispatch"),
		countryCode:   args.CountryCode,
		webhookSecret: args.WebhookSecret,
	}, nil
}

type SendArgs struct {
	Phone      string
	Body       string
	MediaURL   string
	MediaType  domain.MessageType
	TemplateID string
}

// Send отправляет одно сообщение через облачный API. Каждая попытка логируется:
// успешная - строкой со статусом sent и внешним id, неуспешная - строкой failed
// с текстом ошибки. Ошибка провайдера возвращается вместе с уже записанной строкой лога.
func (s *DispatchService) Send(ctx context.Context, userID int64, args SendArgs) (*domain.MessageLog, error) {
	phone := NormalizePhone(args.Phone, s.countryCode)

	messageType := args.MediaType
	if messageType == "" {
		messageType = domain.MessageTypeText
	}

	result, sendErr := s.provider.SendMessage(ctx, provider.SendMessageArgs{
		To:         phone,
		Body:       args.Body,
		MediaURL:   args.MediaURL,
		MediaType:  messageType,
		TemplateID: args.TemplateID,
	})

	if sendErr != nil {
		log, logErr := s.msgRepo.Create(ctx, repoargs.MessageLogCreate{
			UserID:      userID,
			PhoneNumber: phone,
			MessageType: messageType,
			Status:      domain.MessageStatusFailed,
			Error:       sendErr.Error(),
		})
		if logErr != nil {
			return nil, errors.Join(sendErr, logErr)
		}
		return log, sendErr
	}

	log, logErr := s.msgRepo.Create(ctx, repoargs.MessageLogCreate{
		UserID:      userID,
		PhoneNumber: phone,
		ExternalID:  &result.ExternalID,
		MessageType: messageType,
		Status:      domain.MessageStatusSent,
	})
	if logErr != nil {
		return nil, logErr //nolint:wrapcheck
	}
	return log, nil
}

type BatchContact struct {
	Phone     string
	Message   string
	MediaURL  string
	MediaType domain.MessageType
}

type BatchItemResult struct {
	Phone      string
	Status     domain.MessageStatusType
	ExternalID string
	Error      string
}

type BatchResult struct {
	SuccessCount int
	FailureCount int
	Results      []BatchItemResult
}

// SendBatch последовательно отправляет сообщение каждому контакту с фиксированной паузой
// между отправками. Ошибка по одному контакту не прерывает батч: счетчики успехов и
// неудач ведутся раздельно, на каждый контакт остается ровно одна строка лога.
// Отмена контекста останавливает батч, частичный результат возвращается вместе с ошибкой.
func (s *DispatchService) SendBatch(
	ctx context.Context,
	userID int64,
	contacts []BatchContact,
	templateID string,
) (*BatchResult, error) {
	result := BatchResult{
		Results: make([]BatchItemResult, 0, len(contacts)),
	}

	for i, contact := range contacts {
		if i > 0 {
			select {
			case <-ctx.Done():
				return &result, ctx.Err() //nolint:wrapcheck
			case <-time.After(batchPace):
			}
		}

		log, sendErr := s.Send(ctx, userID, SendArgs{
			Phone:      contact.Phone,
			Body:       contact.Message,
			MediaURL:   contact.MediaURL,
			MediaType:  contact.MediaType,
			TemplateID: templateID,
		})
		if sendErr != nil {
			result.FailureCount++
			item := BatchItemResult{
				Phone:  contact.Phone,
				Status: domain.MessageStatusFailed,
				Error:  sendErr.Error(),
			}
			result.Results = append(result.Results, item)
			s.l.WithError(sendErr).WithField("phone", contact.Phone).Warn("batch item failed")
			continue
		}

		result.SuccessCount++
		item := BatchItemResult{
			Phone:  contact.Phone,
			Status: domain.MessageStatusSent,
		}
		if log.ExternalID != nil {
			item.ExternalID = *log.ExternalID
		}
		result.Results = append(result.Results, item)
	}

	return &result, nil
}

type BridgeSendArgs struct {
	Phone     string
	Message   string
	SessionID string
}

// SendViaBridge отправляет сообщение через локальный мост автоматизации. Форма результата
// и логирование те же, что у Send.
func (s *DispatchService) SendViaBridge(ctx context.Context, userID int64, args BridgeSendArgs) (*domain.MessageLog, error) {
	phone := NormalizePhone(args.Phone, s.countryCode)

	result, sendErr := s.bridge.SendMessage(ctx, phone, args.Message, args.SessionID)
	if sendErr != nil {
		log, logErr := s.msgRepo.Create(ctx, repoargs.MessageLogCreate{
			UserID:      userID,
			PhoneNumber: phone,
			MessageType: domain.MessageTypeText,
			Status:      domain.MessageStatusFailed,
			Error:       sendErr.Error(),
		})
		if logErr != nil {
			return nil, errors.Join(sendErr, logErr)
		}
		return log, sendErr
	}

	var externalID *string
	if result.ExternalID != "" {
		externalID = &result.ExternalID
	}
	log, logErr := s.msgRepo.Create(ctx, repoargs.MessageLogCreate{
		UserID:      userID,
		PhoneNumber: phone,
		ExternalID:  externalID,
		MessageType: domain.MessageTypeText,
		Status:      domain.MessageStatusSent,
	})
	if logErr != nil {
		return nil, logErr //nolint:wrapcheck
	}
	return log, nil
}

// UploadMedia загружает вложение провайдеру.
func (s *DispatchService) UploadMedia(ctx context.Context, filePath, mimeType string) (*provider.MediaResult, error) {
	result, err := s.provider.UploadMedia(ctx, filePath, mimeType)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return result, nil
}

// GetStatus опрашивает провайдера о статусе доставки сообщения по его внешнему id.
func (s *DispatchService) GetStatus(ctx context.Context, externalID string) (*provider.StatusResult, error) {
	result, err := s.provider.GetMessageStatus(ctx, externalID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return result, nil
}

// MessageStatus возвращает строку лога и актуальный статус доставки. Если сообщение
// получило внешний id, статус запрашивается у провайдера, иначе берется локальный.
func (s *DispatchService) MessageStatus(
	ctx context.Context,
	logID int64,
) (*domain.MessageLog, *provider.StatusResult, error) {
	log, findErr := s.msgRepo.FindByID(ctx, logID)
	if findErr != nil {
		return nil, nil, findErr //nolint:wrapcheck
	}

	if log.ExternalID == nil {
		return log, &provider.StatusResult{
			Status:    string(log.Status),
			Timestamp: log.UpdatedAt.Format(time.RFC3339),
		}, nil
	}

	result, statusErr := s.GetStatus(ctx, *log.ExternalID)
	if statusErr != nil {
		return log, nil, statusErr
	}
	return log, result, nil
}

// HandleWebhook обрабатывает колбек провайдера. Подпись - HMAC-SHA256 от сырого тела,
// сверяется за константное время; несовпадение дает domain.ErrInvalidSignature и ни одной
// мутации. Валидная но непонятная нагрузка подтверждается без изменений (no-op),
// неизвестные внешние id тоже. Повторные и пришедшие не по порядку статусы гасятся
// порядком статусов на уровне репозитория.
func (s *DispatchService) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !s.verifySignature(rawBody, signature) {
		return domain.ErrInvalidSignature
	}

	var payload provider.WebhookPayload
	if jsonErr := json.Unmarshal(rawBody, &payload); jsonErr != nil {
		s.l.WithError(jsonErr).Warn("malformed webhook payload, ignoring")
		return nil
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if err := s.applyWebhookChange(ctx, change); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *DispatchService) applyWebhookChange(ctx context.Context, change provider.WebhookChange) error {
	for _, message := range change.Value.Messages {
		if message.ID == "" {
			continue
		}

		var status domain.MessageStatusType
		switch change.Field {
		case provider.WebhookFieldMessages:
			status = domain.MessageStatusDelivered
		case provider.WebhookFieldMessageStatus:
			status = mapProviderStatus(message.Status)
		default:
			continue
		}
		if status == "" {
			continue
		}

		updated, updateErr := s.msgRepo.AdvanceStatusByExternalID(ctx, message.ID, status)
		if updateErr != nil {
			return fmt.Errorf("handling webhook: %w", updateErr)
		}
		if !updated {
			s.l.WithFields(logrus.Fields{
				"externalID": message.ID,
				"status":     status,
			}).Debug("webhook status not applied")
		}
	}
	return nil
}

func (s *DispatchService) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func mapProviderStatus(status string) domain.MessageStatusType {
	switch status {
	case "sent":
		return domain.MessageStatusSent
	case "delivered":
		return domain.MessageStatusDelivered
	case "read":
		return domain.MessageStatusRead
	case "failed":
		return domain.MessageStatusFailed
	default:
		return ""
	}
}

// NormalizePhone убирает из номера все символы кроме цифр и добавляет код страны,
// если номер состоит ровно из 10 цифр.
func NormalizePhone(phone, countryCode string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == defaultCountryCodeDigits {
		return countryCode + digits
	}
	return digits
}
