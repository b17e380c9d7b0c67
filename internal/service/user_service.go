package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/service/tokens"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const apiKeyBytesLen = 32

// Стартовые кредиты по ролям. Начисляются записью леджера, а не прямой записью в поле
// баланса, чтобы инвариант balance == sum(transactions) выполнялся с первого дня.
var (
	initialCreditsUser     = decimal.NewFromInt(100)
	initialCreditsReseller = decimal.NewFromInt(10000)
)

type UserService struct {
	uow      uow.UOW
	userRepo UserRepository
	hasher   PasswordHasher
	ledger   *LedgerService

	jwtSecret []byte
	jwtIssuer string
	jwtTTL    time.Duration
}

type UserServiceArgs struct {
	Hasher    PasswordHasher
	Ledger    *LedgerService
	JWTSecret []byte
	JWTIssuer string
	JWTTTL    time.Duration
}

func NewUserService(u uow.UOW, args UserServiceArgs) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr
	}
	return &UserService{
		uow:       u,
		userRepo:  userRepo,
		hasher:    args.Hasher,
		ledger:    args.Ledger,
		jwtSecret: args.JWTSecret,
		jwtIssuer: args.JWTIssuer,
		jwtTTL:    args.JWTTTL,
	}, nil
}

type RegisterUserArgs struct {
	Username string
	Email    string
	Password string
	Phone    string
	Role     domain.RoleType
	ParentID *int64
}

// Register создает юзера и начисляет стартовые кредиты одной транзакцией.
// Возвращает созданного юзера (с api ключами) и ошибку. Занятый юзернейм или email
// дают domain.ErrDuplicateKey.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, fmt.Errorf("registering user: %s", hashErr.Error())
	}

	apiKey, apiKeyErr := randomHex(apiKeyBytesLen)
	if apiKeyErr != nil {
		return nil, fmt.Errorf("registering user: %s", apiKeyErr.Error())
	}
	apiSecret, apiSecretErr := randomHex(apiKeyBytesLen)
	if apiSecretErr != nil {
		return nil, fmt.Errorf("registering user: %s", apiSecretErr.Error())
	}

	role := args.Role
	if role == "" {
		role = domain.RoleUser
	}

	var user *domain.User
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}

		var userErr error
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Username:          args.Username,
			Email:             args.Email,
			Phone:             args.Phone,
			EncryptedPassword: password,
			Role:              role,
			ParentID:          args.ParentID,
			APIKey:            apiKey,
			APISecret:         apiSecret,
			Credits:           decimal.Zero,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}

		_, creditErr := s.ledger.CreditTx(c, tx, CreditArgs{
			UserID:      user.ID,
			Amount:      initialCredits(role),
			Type:        domain.TransactionPurchase,
			ReferenceID: "SIGNUP",
			Description: "Initial credits",
		})
		return creditErr
	})

	if txErr != nil {
		return nil, fmt.Errorf("registering user: %w", txErr)
	}
	return user, nil
}

type LoginUserArgs struct {
	Login    string
	Password string
}

// Login аутентифицирует по паре логин (юзернейм или email) / пароль. Возвращает юзера
// и свежий токен. Для приостановленного аккаунта возвращает domain.ErrUserSuspended.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, findErr := s.userRepo.FindByLogin(ctx, args.Login)
	if findErr != nil {
		return nil, "", fmt.Errorf("logging in: %w", findErr)
	}

	if user.Status != domain.UserStatusActive {
		return nil, "", fmt.Errorf("logging in: %w", domain.ErrUserSuspended)
	}

	if !s.hasher.ComparePassword(args.Password, user.EncryptedPassword) {
		return nil, "", fmt.Errorf("logging in: %w", domain.ErrPasswordMissMatch)
	}

	token, tokenErr := tokens.GenerateUserJWT(tokens.GenerateArgs{
		UserID: user.ID,
		Role:   user.Role,
		Issuer: s.jwtIssuer,
		Expire: s.jwtTTL,
	}, s.jwtSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("logging in: %s", tokenErr.Error())
	}

	return user, token, nil
}

// GetByID возвращает юзера по id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return user, nil
}

// RefreshToken перевыпускает действительный токен с новым сроком.
func (s *UserService) RefreshToken(token string) (string, error) {
	return tokens.RefreshUserJWT(token, s.jwtIssuer, s.jwtTTL, s.jwtSecret)
}

func initialCredits(role domain.RoleType) decimal.Decimal {
	if role == domain.RoleReseller {
		return initialCreditsReseller
	}
	return initialCreditsUser
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %s", err.Error())
	}
	return hex.EncodeToString(buf), nil
}
