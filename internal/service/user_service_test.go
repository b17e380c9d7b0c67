package service

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/service/mocks"
	"github.com/fsdevblog/bulkgate/internal/service/tokens"
	"github.com/fsdevblog/bulkgate/pkg/uow"
	uowmocks "github.com/fsdevblog/bulkgate/pkg/uow/mocks"
)

type UserServiceTestSuite struct {
	suite.Suite
	mockUOW      *uowmocks.MockUOW
	mockTX       *uowmocks.MockTX
	mockUserRepo *mocks.MockUserRepository
	mockCTRepo   *mocks.MockCreditTransactionRepository
	mockPsswd    *mocks.MockPasswordHasher
	jwtSecret    []byte
	userService  *UserService
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceTestSuite))
}

func (s *UserServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(mockCtrl)
	s.mockTX = uowmocks.NewMockTX(mockCtrl)
	s.mockUserRepo = mocks.NewMockUserRepository(mockCtrl)
	s.mockCTRepo = mocks.NewMockCreditTransactionRepository(mockCtrl)
	s.mockPsswd = mocks.NewMockPasswordHasher(mockCtrl)

	s.jwtSecret = []byte("secret")

	// Мок получения репозиториев из uow. Выполняется в инициализации сервисов.
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.CreditTransactionRepoName)).
		Return(s.mockCTRepo, nil).AnyTimes()

	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.UserRepoName)).
		Return(s.mockUserRepo, nil).AnyTimes()
	s.mockTX.EXPECT().Get(uow.RepositoryName(repoargs.CreditTransactionRepoName)).
		Return(s.mockCTRepo, nil).AnyTimes()

	ledger, ledgerErr := NewLedgerService(s.mockUOW)
	s.Require().NoError(ledgerErr)

	userService, servErr := NewUserService(s.mockUOW, UserServiceArgs{
		Hasher:    s.mockPsswd,
		Ledger:    ledger,
		JWTSecret: s.jwtSecret,
		JWTIssuer: "bulkgate",
		JWTTTL:    time.Hour,
	})
	s.Require().NoError(servErr)
	s.userService = userService
}

func (s *UserServiceTestSuite) expectDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(ctx, s.mockTX)
		}).AnyTimes()
}

func (s *UserServiceTestSuite) TestRegister() {
	args := RegisterUserArgs{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: "password123",
	}

	s.expectDo()
	s.mockPsswd.EXPECT().HashPassword(args.Password).Return("hashed", nil)

	s.mockUserRepo.EXPECT().
		CreateUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, createArgs repoargs.CreateUser) (*domain.User, error) {
			s.Equal(args.Username, createArgs.Username)
			s.Equal("hashed", createArgs.EncryptedPassword)
			// роль по умолчанию user, api ключи сгенерированы.
			s.Equal(domain.RoleUser, createArgs.Role)
			s.Len(createArgs.APIKey, 64)
			s.Len(createArgs.APISecret, 64)
			s.True(createArgs.Credits.IsZero())
			return &domain.User{
				ID:       1,
				Username: createArgs.Username,
				Email:    createArgs.Email,
				Role:     createArgs.Role,
				APIKey:   createArgs.APIKey,
			}, nil
		})

	// стартовые кредиты приходят записью леджера, а не прямой записью поля.
	s.mockCTRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ctArgs repoargs.CreditTransactionCreate) (*domain.CreditTransaction, error) {
			s.True(ctArgs.Amount.Equal(decimal.NewFromInt(100)))
			s.Equal(domain.TransactionPurchase, ctArgs.Type)
			return &domain.CreditTransaction{ID: 1, UserID: 1, Amount: ctArgs.Amount}, nil
		})
	s.mockCTRepo.EXPECT().SumByUserID(gomock.Any(), int64(1)).Return(decimal.NewFromInt(100), nil)
	s.mockUserRepo.EXPECT().SyncCredits(gomock.Any(), int64(1), gomock.Any()).Return(nil)

	user, err := s.userService.Register(context.Background(), args)
	s.Require().NoError(err)
	s.Equal(args.Username, user.Username)
}

func (s *UserServiceTestSuite) TestRegisterReseller() {
	args := RegisterUserArgs{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: "password123",
		Role:     domain.RoleReseller,
	}

	s.expectDo()
	s.mockPsswd.EXPECT().HashPassword(args.Password).Return("hashed", nil)
	s.mockUserRepo.EXPECT().
		CreateUser(gomock.Any(), gomock.Any()).
		Return(&domain.User{ID: 2, Role: domain.RoleReseller}, nil)

	s.mockCTRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ctArgs repoargs.CreditTransactionCreate) (*domain.CreditTransaction, error) {
			// реселлеру стартовых кредитов больше.
			s.True(ctArgs.Amount.Equal(decimal.NewFromInt(10000)))
			return &domain.CreditTransaction{ID: 1, UserID: 2, Amount: ctArgs.Amount}, nil
		})
	s.mockCTRepo.EXPECT().SumByUserID(gomock.Any(), int64(2)).Return(decimal.NewFromInt(10000), nil)
	s.mockUserRepo.EXPECT().SyncCredits(gomock.Any(), int64(2), gomock.Any()).Return(nil)

	_, err := s.userService.Register(context.Background(), args)
	s.Require().NoError(err)
}

func (s *UserServiceTestSuite) TestRegisterDuplicate() {
	args := RegisterUserArgs{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Password: "password123",
	}

	s.expectDo()
	s.mockPsswd.EXPECT().HashPassword(args.Password).Return("hashed", nil)
	s.mockUserRepo.EXPECT().
		CreateUser(gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrDuplicateKey)
	// при дубле никаких начислений.
	s.mockCTRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.userService.Register(context.Background(), args)
	s.Require().ErrorIs(err, domain.ErrDuplicateKey)
}

func (s *UserServiceTestSuite) TestLogin() {
	savedUserLogin := "test"
	// аргументы вызовов для кейсов ниже.
	argsOk := LoginUserArgs{
		Login:    savedUserLogin,
		Password: "<PASSWORD>",
	}
	argsWrongLogin := LoginUserArgs{
		Login:    "wrong",
		Password: "<PASSWORD>",
	}
	argsWrongPass := LoginUserArgs{
		Login:    savedUserLogin,
		Password: "wrong pass",
	}

	validHashPassword := "hash ok"

	savedUser := domain.User{
		ID:                1,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
		Username:          savedUserLogin,
		EncryptedPassword: validHashPassword,
		Role:              domain.RoleUser,
		Status:            domain.UserStatusActive,
	}

	// Мок для сравнения пароля.
	s.mockPsswd.EXPECT().ComparePassword(argsOk.Password, validHashPassword).Return(true)
	s.mockPsswd.EXPECT().ComparePassword(argsWrongLogin.Password, validHashPassword).Times(0)
	s.mockPsswd.EXPECT().ComparePassword(argsWrongPass.Password, validHashPassword).Return(false)

	// Мок репозитория.
	s.mockUserRepo.EXPECT().
		FindByLogin(gomock.Any(), savedUserLogin).
		Return(&savedUser, nil).Times(2)

	s.mockUserRepo.EXPECT().
		FindByLogin(gomock.Any(), argsWrongLogin.Login).
		Return(nil, domain.ErrRecordNotFound)

	cases := []struct {
		name    string
		args    LoginUserArgs
		wantErr error
	}{
		{name: "ok", args: argsOk, wantErr: nil},
		{name: "wrong login", args: argsWrongLogin, wantErr: domain.ErrRecordNotFound},
		{name: "wrong password", args: argsWrongPass, wantErr: domain.ErrPasswordMissMatch},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			user, tokenStr, err := s.userService.Login(context.Background(), t.args)
			s.Require().ErrorIs(err, t.wantErr)

			if t.wantErr == nil {
				s.NotEmpty(tokenStr)

				claims, tokenErr := tokens.ValidateUserJWT(tokenStr, s.jwtSecret)
				s.Require().NoError(tokenErr)
				s.Equal(savedUser.ID, claims.UserID)
				s.Equal(savedUser.Role, claims.Role)
				s.NotNil(user)
			}
		})
	}
}

func (s *UserServiceTestSuite) TestLoginSuspended() {
	savedUser := domain.User{
		ID:                1,
		Username:          "suspended",
		EncryptedPassword: "hash",
		Status:            domain.UserStatusSuspended,
	}

	s.mockUserRepo.EXPECT().
		FindByLogin(gomock.Any(), savedUser.Username).
		Return(&savedUser, nil)
	// до сравнения пароля дело не доходит.
	s.mockPsswd.EXPECT().ComparePassword(gomock.Any(), gomock.Any()).Times(0)

	_, _, err := s.userService.Login(context.Background(), LoginUserArgs{
		Login:    savedUser.Username,
		Password: "whatever",
	})
	s.Require().ErrorIs(err, domain.ErrUserSuspended)
}

func (s *UserServiceTestSuite) TestRefreshToken() {
	token, genErr := tokens.GenerateUserJWT(tokens.GenerateArgs{
		UserID: 1,
		Role:   domain.RoleUser,
		Issuer: "bulkgate",
		Expire: time.Hour,
	}, s.jwtSecret)
	s.Require().NoError(genErr)

	refreshed, err := s.userService.RefreshToken(token)
	s.Require().NoError(err)

	claims, valErr := tokens.ValidateUserJWT(refreshed, s.jwtSecret)
	s.Require().NoError(valErr)
	s.Equal(int64(1), claims.UserID)
}
