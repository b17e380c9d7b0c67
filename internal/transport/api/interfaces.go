package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/service"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
)

// UserServicer интерфейс исключительно для моков.
type UserServicer interface {
	Register(ctx context.Context, args service.RegisterUserArgs) (*domain.User, error)
	Login(ctx context.Context, args service.LoginUserArgs) (*domain.User, string, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	RefreshToken(token string) (string, error)
}

type LedgerServicer interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	Credit(ctx context.Context, args service.CreditArgs) (*domain.CreditTransaction, error)
	Debit(ctx context.Context, args service.DebitArgs) (*domain.CreditTransaction, error)
	History(ctx context.Context, userID int64, limit, offset uint) ([]domain.CreditTransaction, error)
}

type DispatchServicer interface {
	Send(ctx context.Context, userID int64, args service.SendArgs) (*domain.MessageLog, error)
	SendBatch(
		ctx context.Context,
		userID int64,
		contacts []service.BatchContact,
		templateID string,
	) (*service.BatchResult, error)
	SendViaBridge(ctx context.Context, userID int64, args service.BridgeSendArgs) (*domain.MessageLog, error)
	MessageStatus(ctx context.Context, logID int64) (*domain.MessageLog, *provider.StatusResult, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
}

type CommissionServicer interface {
	Compute(ctx context.Context, customerID int64) (*service.CommissionReport, error)
	Pay(ctx context.Context, resellerID, customerID int64) (*domain.CommissionRecord, error)
	History(ctx context.Context, resellerID int64) ([]domain.CommissionRecord, error)
}
