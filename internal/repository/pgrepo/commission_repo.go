package pgrepo

import (
	"context"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const commissionColumns = `id, created_at, reseller_id, customer_id, message_count, total_cost, commission_amount, period`

type ResellerCommissionRepository struct {
	db uow.DBTX
}

func NewResellerCommissionRepository(db uow.DBTX) *ResellerCommissionRepository {
	return &ResellerCommissionRepository{db: db}
}

// Create вставляет запись комиссии. Ключ (reseller_id, customer_id, period) уникален:
// повторная выплата за тот же период вернет domain.ErrDuplicateKey.
func (r *ResellerCommissionRepository) Create(
	ctx context.Context,
	args repoargs.CommissionCreate,
) (*domain.CommissionRecord, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO reseller_commissions (reseller_id, customer_id, message_count, total_cost, commission_amount, period)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+commissionColumns,
		args.ResellerID, args.CustomerID, args.MessageCount, args.TotalCost, args.CommissionAmount, args.Period,
	)

	var rec domain.CommissionRecord
	if err := row.Scan(
		&rec.ID, &rec.CreatedAt, &rec.ResellerID, &rec.CustomerID,
		&rec.MessageCount, &rec.TotalCost, &rec.CommissionAmount, &rec.Period,
	); err != nil {
		return nil, convertErr(err, "creating commission record")
	}
	return &rec, nil
}

// GetByReseller возвращает выплаты реселлера, отсортированные по дате создания по убыванию.
func (r *ResellerCommissionRepository) GetByReseller(
	ctx context.Context,
	resellerID int64,
) ([]domain.CommissionRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+commissionColumns+` FROM reseller_commissions
		WHERE reseller_id = $1 ORDER BY created_at DESC`, resellerID)
	if err != nil {
		return nil, convertErr(err, "getting commissions for reseller %d", resellerID)
	}
	defer rows.Close()

	var records []domain.CommissionRecord
	for rows.Next() {
		var rec domain.CommissionRecord
		if scanErr := rows.Scan(
			&rec.ID, &rec.CreatedAt, &rec.ResellerID, &rec.CustomerID,
			&rec.MessageCount, &rec.TotalCost, &rec.CommissionAmount, &rec.Period,
		); scanErr != nil {
			return nil, convertErr(scanErr, "scanning commission row")
		}
		records = append(records, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating commission rows")
	}
	return records, nil
}
