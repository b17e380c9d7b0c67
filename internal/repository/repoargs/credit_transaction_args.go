package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

type CreditTransactionCreate struct {
	UserID      int64
	Amount      decimal.Decimal
	Type        domain.TransactionType
	ReferenceID string
	Description string
}

type HistoryPage struct {
	UserID int64
	Limit  uint
	Offset uint
}
