package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const DefaultHistoryLimit uint = 50

// LedgerService ведет леджер кредитов. Таблица credit_transactions append-only,
// баланс всегда выводится суммированием; поле users.credits лишь кэш,
// пересчитываемый в той же транзакции что и запись леджера.
type LedgerService struct {
	uow    uow.UOW
	ctRepo CreditTransactionRepository
}

func NewLedgerService(u uow.UOW) (*LedgerService, error) {
	rName := uow.RepositoryName(repoargs.CreditTransactionRepoName)
	ctRepo, ctRepoErr := uow.GetRepositoryAs[CreditTransactionRepository](u, rName)
	if ctRepoErr != nil {
		return nil, ctRepoErr
	}
	return &LedgerService{
		uow:    u,
		ctRepo: ctRepo,
	}, nil
}

// Balance возвращает текущий баланс юзера. Отсутствие записей - ноль.
func (s *LedgerService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	balance, err := s.ctRepo.SumByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	return balance, nil
}

type CreditArgs struct {
	UserID      int64
	Amount      decimal.Decimal
	Type        domain.TransactionType
	ReferenceID string
	Description string
}

// Credit начисляет кредиты: вставка записи леджера и пересчет кэша баланса выполняются
// одной транзакцией.
func (s *LedgerService) Credit(ctx context.Context, args CreditArgs) (*domain.CreditTransaction, error) {
	var transaction *domain.CreditTransaction
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var creditErr error
		transaction, creditErr = s.CreditTx(c, tx, args)
		return creditErr
	})
	if txErr != nil {
		return nil, fmt.Errorf("crediting user %d: %w", args.UserID, txErr)
	}
	return transaction, nil
}

// CreditTx вариант Credit для вызова внутри уже открытой uow транзакции
// (используется регистрацией и выплатой комиссии).
func (s *LedgerService) CreditTx(ctx context.Context, tx uow.TX, args CreditArgs) (*domain.CreditTransaction, error) {
	if !args.Amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	ctRepo, ctRepoErr := uow.GetAs[CreditTransactionRepository](tx, uow.RepositoryName(repoargs.CreditTransactionRepoName))
	if ctRepoErr != nil {
		return nil, ctRepoErr //nolint:wrapcheck
	}

	transaction, createErr := ctRepo.Create(ctx, repoargs.CreditTransactionCreate{
		UserID:      args.UserID,
		Amount:      args.Amount,
		Type:        args.Type,
		ReferenceID: args.ReferenceID,
		Description: args.Description,
	})
	if createErr != nil {
		return nil, createErr //nolint:wrapcheck
	}

	if syncErr := s.syncCachedBalance(ctx, tx, args.UserID); syncErr != nil {
		return nil, syncErr
	}
	return transaction, nil
}

type DebitArgs struct {
	UserID      int64
	Amount      decimal.Decimal
	Description string
	CampaignRef string
}

// Debit списывает кредиты. Строка юзера блокируется до чтения баланса, поэтому
// конкурирующие списания сериализуются и не могут увести баланс в минус.
// При нехватке средств возвращает *domain.InsufficientCreditsError и ничего не пишет.
func (s *LedgerService) Debit(ctx context.Context, args DebitArgs) (*domain.CreditTransaction, error) {
	if !args.Amount.IsPositive() {
		return nil, domain.ErrNonPositiveAmount
	}

	var transaction *domain.CreditTransaction
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		ctRepo, ctRepoErr := uow.GetAs[CreditTransactionRepository](tx, uow.RepositoryName(repoargs.CreditTransactionRepoName))
		if ctRepoErr != nil {
			return ctRepoErr //nolint:wrapcheck
		}

		if _, lockErr := userRepo.LockByID(c, args.UserID); lockErr != nil {
			return lockErr //nolint:wrapcheck
		}

		balance, balanceErr := ctRepo.SumByUserID(c, args.UserID)
		if balanceErr != nil {
			return balanceErr //nolint:wrapcheck
		}

		if balance.LessThan(args.Amount) {
			return domain.NewInsufficientCreditsError(balance, args.Amount)
		}

		var createErr error
		transaction, createErr = ctRepo.Create(c, repoargs.CreditTransactionCreate{
			UserID:      args.UserID,
			Amount:      args.Amount.Neg(),
			Type:        domain.TransactionUsed,
			ReferenceID: args.CampaignRef,
			Description: args.Description,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		return s.syncCachedBalance(c, tx, args.UserID)
	})

	if txErr != nil {
		return nil, fmt.Errorf("debiting user %d: %w", args.UserID, txErr)
	}
	return transaction, nil
}

// History возвращает записи леджера юзера, новые первыми.
func (s *LedgerService) History(ctx context.Context, userID int64, limit, offset uint) ([]domain.CreditTransaction, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	transactions, err := s.ctRepo.GetHistory(ctx, repoargs.HistoryPage{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}

// MessageCost возвращает стоимость сообщения данного типа.
func (s *LedgerService) MessageCost(messageType domain.MessageType) decimal.Decimal {
	return messageType.Cost()
}

func (s *LedgerService) syncCachedBalance(ctx context.Context, tx uow.TX, userID int64) error {
	ctRepo, ctRepoErr := uow.GetAs[CreditTransactionRepository](tx, uow.RepositoryName(repoargs.CreditTransactionRepoName))
	if ctRepoErr != nil {
		return ctRepoErr //nolint:wrapcheck
	}
	userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return userRepoErr //nolint:wrapcheck
	}

	balance, balanceErr := ctRepo.SumByUserID(ctx, userID)
	if balanceErr != nil {
		return balanceErr //nolint:wrapcheck
	}
	return userRepo.SyncCredits(ctx, userID, balance) //nolint:wrapcheck
}
