package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const (
	DefaultCommissionWindowDays = 30

	commissionPeriodLayout = "2006-01"
)

// commissionPercentage доля стоимости использования клиента, выплачиваемая реселлеру.
var commissionPercentage = decimal.NewFromInt(20)

// CommissionService считает и выплачивает комиссию реселлера с использования его клиентов.
type CommissionService struct {
	uow            uow.UOW
	msgRepo        MessageLogRepository
	commissionRepo CommissionRepository
	userRepo       UserRepository
	ledger         *LedgerService
	windowDays     int
}

func NewCommissionService(u uow.UOW, ledger *LedgerService) (*CommissionService, error) {
	msgRepo, msgRepoErr := uow.GetRepositoryAs[MessageLogRepository](u, uow.RepositoryName(repoargs.MessageLogRepoName))
	if msgRepoErr != nil {
		return nil, msgRepoErr
	}
	commissionRepo, commissionRepoErr :=
		uow.GetRepositoryAs[CommissionRepository](u, uow.RepositoryName(repoargs.ResellerCommissionRepoName))
	if commissionRepoErr != nil {
		return nil, commissionRepoErr
	}
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &CommissionService{
		uow:            u,
		msgRepo:        msgRepo,
		commissionRepo: commissionRepo,
		userRepo:       userRepo,
		ledger:         ledger,
		windowDays:     DefaultCommissionWindowDays,
	}, nil
}

type CommissionReport struct {
	MessageCount     int64
	TotalCost        decimal.Decimal
	CommissionAmount decimal.Decimal
}

// Compute агрегирует сообщения клиента за скользящее окно, оценивает каждое по тарифу
// его типа и применяет процент комиссии.
func (s *CommissionService) Compute(ctx context.Context, customerID int64) (*CommissionReport, error) {
	since := time.Now().UTC().AddDate(0, 0, -s.windowDays)

	usage, usageErr := s.msgRepo.UsageSince(ctx, repoargs.UsageWindow{
		UserID: customerID,
		Since:  since,
	})
	if usageErr != nil {
		return nil, fmt.Errorf("computing commission for customer %d: %w", customerID, usageErr)
	}

	report := CommissionReport{
		TotalCost:        decimal.Zero,
		CommissionAmount: decimal.Zero,
	}
	for _, u := range usage {
		report.MessageCount += u.Count
		report.TotalCost = report.TotalCost.Add(u.MessageType.Cost().Mul(decimal.NewFromInt(u.Count)))
	}
	report.CommissionAmount = report.TotalCost.Mul(commissionPercentage).Div(decimal.NewFromInt(100)) //nolint:mnd

	return &report, nil
}

// Pay выплачивает комиссию реселлеру за клиента. Запись комиссии ключуется периодом
// (месяц UTC): повторная выплата за тот же период вернет domain.ErrDuplicateKey и ничего
// не запишет. Нулевая комиссия - domain.ErrNothingToPay. Сумма зачисляется в леджер
// реселлера усеченной до целого, с референсом на клиента-источник.
func (s *CommissionService) Pay(ctx context.Context, resellerID, customerID int64) (*domain.CommissionRecord, error) {
	customer, customerErr := s.userRepo.FindByID(ctx, customerID)
	if customerErr != nil {
		return nil, fmt.Errorf("paying commission: %w", customerErr)
	}
	if customer.ParentID == nil || *customer.ParentID != resellerID {
		return nil, fmt.Errorf("paying commission: %w", domain.ErrOwnerConflict)
	}

	report, computeErr := s.Compute(ctx, customerID)
	if computeErr != nil {
		return nil, computeErr
	}

	if !report.CommissionAmount.IsPositive() {
		return nil, fmt.Errorf("paying commission: %w", domain.ErrNothingToPay)
	}

	period := time.Now().UTC().Format(commissionPeriodLayout)

	var record *domain.CommissionRecord
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		commissionRepo, commissionRepoErr :=
			uow.GetAs[CommissionRepository](tx, uow.RepositoryName(repoargs.ResellerCommissionRepoName))
		if commissionRepoErr != nil {
			return commissionRepoErr //nolint:wrapcheck
		}

		var createErr error
		record, createErr = commissionRepo.Create(c, repoargs.CommissionCreate{
			ResellerID:       resellerID,
			CustomerID:       customerID,
			MessageCount:     report.MessageCount,
			TotalCost:        report.TotalCost,
			CommissionAmount: report.CommissionAmount,
			Period:           period,
		})
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		payout := decimal.NewFromInt(report.CommissionAmount.IntPart())
		if !payout.IsPositive() {
			// комиссия меньше одного кредита целиком усекается, запись периода при этом
			// остается, чтобы не пересчитывать то же окно повторно.
			return nil
		}

		_, creditErr := s.ledger.CreditTx(c, tx, CreditArgs{
			UserID:      resellerID,
			Amount:      payout,
			Type:        domain.TransactionCommission,
			ReferenceID: fmt.Sprintf("COMMISSION_%d", customerID),
			Description: fmt.Sprintf("Commission from customer %d", customerID),
		})
		return creditErr
	})

	if txErr != nil {
		return nil, fmt.Errorf("paying commission to reseller %d: %w", resellerID, txErr)
	}
	return record, nil
}

// History возвращает выплаты реселлера.
func (s *CommissionService) History(ctx context.Context, resellerID int64) ([]domain.CommissionRecord, error) {
	records, err := s.commissionRepo.GetByReseller(ctx, resellerID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return records, nil
}

// Customers возвращает активных клиентов реселлера (для периодического обходчика выплат).
func (s *CommissionService) Customers(ctx context.Context, resellerID int64) ([]domain.User, error) {
	customers, err := s.userRepo.GetCustomers(ctx, resellerID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return customers, nil
}

// Resellers возвращает всех активных реселлеров.
func (s *CommissionService) Resellers(ctx context.Context) ([]domain.User, error) {
	resellers, err := s.userRepo.GetResellers(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return resellers, nil
}
