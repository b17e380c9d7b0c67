package domain

import "github.com/shopspring/decimal"

type RoleType string

const (
	RoleUser     RoleType = "user"
	RoleReseller RoleType = "reseller"
	RoleAdmin    RoleType = "admin"
)

type UserStatusType string

const (
	UserStatusActive    UserStatusType = "active"
	UserStatusSuspended UserStatusType = "suspended"
)

type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionUsed       TransactionType = "used"
	TransactionCommission TransactionType = "commission"
)

type MessageStatusType string

const (
	MessageStatusQueued    MessageStatusType = "queued"
	MessageStatusSent      MessageStatusType = "sent"
	MessageStatusFailed    MessageStatusType = "failed"
	MessageStatusDelivered MessageStatusType = "delivered"
	MessageStatusRead      MessageStatusType = "read"
)

// Rank задает линейный порядок статусов доставки. Переход применяется только если
// повышает ранг, поэтому повторные и пришедшие не по порядку колбеки безопасны.
// Статус failed терминальный.
func (s MessageStatusType) Rank() int {
	switch s {
	case MessageStatusQueued:
		return 0
	case MessageStatusSent:
		return 1
	case MessageStatusDelivered:
		return 2
	case MessageStatusRead:
		return 3
	case MessageStatusFailed:
		return 4
	default:
		return -1
	}
}

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeDocument MessageType = "document"
	MessageTypeVideo    MessageType = "video"
	MessageTypeAudio    MessageType = "audio"
)

// Cost возвращает стоимость отправки сообщения данного типа в кредитах.
// Для неизвестного типа действует тариф текстового сообщения.
func (t MessageType) Cost() decimal.Decimal {
	switch t {
	case MessageTypeImage:
		return decimal.NewFromFloat(1.0)
	case MessageTypeDocument:
		return decimal.NewFromFloat(1.5)
	case MessageTypeVideo:
		return decimal.NewFromFloat(2.0)
	case MessageTypeText, MessageTypeAudio:
		return decimal.NewFromFloat(0.5)
	default:
		return decimal.NewFromFloat(0.5)
	}
}

// ProviderField имя поля в теле запроса к провайдеру, в котором передается вложение.
func (t MessageType) ProviderField() string {
	switch t {
	case MessageTypeImage, MessageTypeDocument, MessageTypeVideo, MessageTypeAudio:
		return string(t)
	default:
		return string(MessageTypeText)
	}
}
