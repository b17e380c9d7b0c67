package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

type CreateUser struct {
	Username          string
	Email             string
	Phone             string
	EncryptedPassword string
	Role              domain.RoleType
	ParentID          *int64
	APIKey            string
	APISecret         string
	Credits           decimal.Decimal
}
