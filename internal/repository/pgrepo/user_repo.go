package pgrepo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const userColumns = `id, created_at, updated_at, username, email, phone, encrypted_password,
role, parent_id, api_key, api_secret, credits, status`

type UserRepository struct {
	db uow.DBTX
}

func NewUserRepository(db uow.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser создает юзера. В случае конфликта юзернейма или email возвращает ошибку
// domain.ErrDuplicateKey, во всех других случаях - domain.ErrUnknown.
func (u *UserRepository) CreateUser(ctx context.Context, args repoargs.CreateUser) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `
		INSERT INTO users (username, email, phone, encrypted_password, role, parent_id, api_key, api_secret, credits, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'active')
		RETURNING `+userColumns,
		args.Username, args.Email, args.Phone, args.EncryptedPassword,
		args.Role, args.ParentID, args.APIKey, args.APISecret, args.Credits,
	)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "creating user")
	}
	return user, nil
}

// FindByLogin ищет юзера по юзернейму или email. Возвращает ошибку domain.ErrRecordNotFound
// если запись не найдена, во всех других случаях - domain.ErrUnknown.
func (u *UserRepository) FindByLogin(ctx context.Context, login string) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $1`, login)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by login %s", login)
	}
	return user, nil
}

func (u *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "finding user by id %d", id)
	}
	return user, nil
}

// LockByID захватывает блокировку строки юзера до конца транзакции. Конкурирующие
// списания с одного баланса сериализуются на этой блокировке.
func (u *UserRepository) LockByID(ctx context.Context, id int64) (*domain.User, error) {
	row := u.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	user, err := scanUser(row)
	if err != nil {
		return nil, convertErr(err, "locking user by id %d", id)
	}
	return user, nil
}

// SyncCredits перезаписывает кэшированный баланс юзера суммой по леджеру.
func (u *UserRepository) SyncCredits(ctx context.Context, userID int64, balance decimal.Decimal) error {
	_, err := u.db.Exec(ctx, `UPDATE users SET credits = $2, updated_at = now() WHERE id = $1`, userID, balance)
	if err != nil {
		return convertErr(err, "syncing credits for user %d", userID)
	}
	return nil
}

// GetCustomers возвращает активных клиентов реселлера.
func (u *UserRepository) GetCustomers(ctx context.Context, resellerID int64) ([]domain.User, error) {
	rows, err := u.db.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE parent_id = $1 AND status = 'active' ORDER BY id`, resellerID)
	if err != nil {
		return nil, convertErr(err, "getting customers of reseller %d", resellerID)
	}
	return collectUsers(rows)
}

// GetResellers возвращает всех активных реселлеров.
func (u *UserRepository) GetResellers(ctx context.Context) ([]domain.User, error) {
	rows, err := u.db.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = 'reseller' AND status = 'active' ORDER BY id`)
	if err != nil {
		return nil, convertErr(err, "getting resellers")
	}
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]domain.User, error) {
	defer rows.Close()
	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, convertErr(err, "scanning user row")
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, convertErr(err, "iterating user rows")
	}
	return users, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.CreatedAt, &user.UpdatedAt, &user.Username, &user.Email,
		&user.Phone, &user.EncryptedPassword, &user.Role, &user.ParentID,
		&user.APIKey, &user.APISecret, &user.Credits, &user.Status,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
