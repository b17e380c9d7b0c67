package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error)
	FindByLogin(ctx context.Context, login string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	LockByID(ctx context.Context, id int64) (*domain.User, error)
	SyncCredits(ctx context.Context, userID int64, balance decimal.Decimal) error
	GetCustomers(ctx context.Context, resellerID int64) ([]domain.User, error)
	GetResellers(ctx context.Context) ([]domain.User, error)
}

type CreditTransactionRepository interface {
	Create(ctx context.Context, args repoargs.CreditTransactionCreate) (*domain.CreditTransaction, error)
	SumByUserID(ctx context.Context, userID int64) (decimal.Decimal, error)
	GetHistory(ctx context.Context, page repoargs.HistoryPage) ([]domain.CreditTransaction, error)
}

type MessageLogRepository interface {
	Create(ctx context.Context, args repoargs.MessageLogCreate) (*domain.MessageLog, error)
	FindByID(ctx context.Context, id int64) (*domain.MessageLog, error)
	AdvanceStatusByExternalID(ctx context.Context, externalID string, status domain.MessageStatusType) (bool, error)
	UsageSince(ctx context.Context, window repoargs.UsageWindow) ([]repoargs.UsageByType, error)
}

type CommissionRepository interface {
	Create(ctx context.Context, args repoargs.CommissionCreate) (*domain.CommissionRecord, error)
	GetByReseller(ctx context.Context, resellerID int64) ([]domain.CommissionRecord, error)
}

type ProviderClient interface {
	SendMessage(ctx context.Context, args provider.SendMessageArgs) (*provider.SendResult, error)
	UploadMedia(ctx context.Context, filePath, mimeType string) (*provider.MediaResult, error)
	GetMessageStatus(ctx context.Context, externalID string) (*provider.StatusResult, error)
}

type BridgeClient interface {
	SendMessage(ctx context.Context, phone, message, sessionID string) (*provider.SendResult, error)
}
