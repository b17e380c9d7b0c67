package pgrepo

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const creditTransactionColumns = `id, created_at, user_id, amount, transaction_type, reference_id, description`

type CreditTransactionRepository struct {
	db uow.DBTX
}

func NewCreditTransactionRepository(db uow.DBTX) *CreditTransactionRepository {
	return &CreditTransactionRepository{db: db}
}

func (c *CreditTransactionRepository) Create(
	ctx context.Context,
	args repoargs.CreditTransactionCreate,
) (*domain.CreditTransaction, error) {
	row := c.db.QueryRow(ctx, `
		INSERT INTO credit_transactions (user_id, amount, transaction_type, reference_id, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+creditTransactionColumns,
		args.UserID, args.Amount, args.Type, args.ReferenceID, args.Description,
	)

	var t domain.CreditTransaction
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UserID, &t.Amount, &t.Type, &t.ReferenceID, &t.Description); err != nil {
		return nil, convertErr(err, "creating credit transaction")
	}
	return &t, nil
}

// SumByUserID возвращает сумму всех записей леджера юзера. Отсутствие записей - ноль.
func (c *CreditTransactionRepository) SumByUserID(ctx context.Context, userID int64) (decimal.Decimal, error) {
	row := c.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM credit_transactions WHERE user_id = $1`, userID)

	var sum decimal.Decimal
	if err := row.Scan(&sum); err != nil {
		return decimal.Zero, convertErr(err, "getting balance sum by userID %d", userID)
	}
	return sum, nil
}

// GetHistory возвращает записи леджера юзера, отсортированные по дате создания по убыванию.
func (c *CreditTransactionRepository) GetHistory(
	ctx context.Context,
	page repoargs.HistoryPage,
) ([]domain.CreditTransaction, error) {
	rows, err := c.db.Query(ctx, `
		SELECT `+creditTransactionColumns+`
		FROM credit_transactions WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		page.UserID, page.Limit, page.Offset,
	)
	if err != nil {
		return nil, convertErr(err, "getting credit history for user %d", page.UserID)
	}
	defer rows.Close()

	var transactions []domain.CreditTransaction
	for rows.Next() {
		var t domain.CreditTransaction
		if scanErr := rows.Scan(
			&t.ID, &t.CreatedAt, &t.UserID, &t.Amount, &t.Type, &t.ReferenceID, &t.Description,
		); scanErr != nil {
			return nil, convertErr(scanErr, "scanning credit transaction row")
		}
		transactions = append(transactions, t)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating credit transaction rows")
	}
	return transactions, nil
}
