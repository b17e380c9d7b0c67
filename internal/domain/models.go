package domain

import (
	"github.com/shopspring/decimal"

	"time"
)

type User struct {
	ID                int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Username          string
	Email             string
	Phone             string
	EncryptedPassword string
	Role              RoleType
	ParentID          *int64
	APIKey            string
	APISecret         string
	// Credits кэшированное значение баланса. Источником истины всегда является
	// сумма по credit_transactions, поле пересчитывается после каждой записи в леджер.
	Credits decimal.Decimal
	Status  UserStatusType
}

// CreditTransaction запись леджера. Строки никогда не обновляются и не удаляются,
// коррекции выполняются встречными записями.
type CreditTransaction struct {
	ID          int64
	CreatedAt   time.Time
	UserID      int64
	Amount      decimal.Decimal
	Type        TransactionType
	ReferenceID string
	Description string
}

type MessageLog struct {
	ID          int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	UserID      int64
	PhoneNumber string
	// ExternalID идентификатор сообщения на стороне провайдера. Заполняется только
	// после успешной отправки; уникален среди непустых значений.
	ExternalID  *string
	MessageType MessageType
	Status      MessageStatusType
	Error       string
}

// CommissionRecord результат периодической агрегации использования клиента.
// Запись неизменяемая, сумма комиссии материализуется отдельной записью леджера.
type CommissionRecord struct {
	ID               int64
	CreatedAt        time.Time
	ResellerID       int64
	CustomerID       int64
	MessageCount     int64
	TotalCost        decimal.Decimal
	CommissionAmount decimal.Decimal
	Period           string
}
