package app

import (
	"context"
	"fmt"

	"github.com/fsdevblog/bulkgate/internal/commission"
	"github.com/fsdevblog/bulkgate/internal/config"
	"github.com/fsdevblog/bulkgate/internal/repository/pgrepo"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/service"
	"github.com/fsdevblog/bulkgate/internal/transport/api"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
	"github.com/fsdevblog/bulkgate/pkg/uow"

	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	"os/signal"
	"syscall"

	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app on %s", a.Config.RunAddress)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("app run: %s", uowErr.Error())
	}

	providerClient := provider.NewHTTPClient(
		a.Config.ProviderBaseURL,
		a.Config.ProviderAccountID,
		a.Config.ProviderToken,
	)
	bridgeClient := provider.NewBridgeClient(a.Config.BridgeBaseURL)

	services, sErr := service.Factory(unitOfWork, service.FactoryArgs{
		Provider:      providerClient,
		Bridge:        bridgeClient,
		Logger:        a.Logger,
		JWTSecret:     []byte(a.Config.JWTSecret),
		JWTIssuer:     a.Config.JWTIssuer,
		JWTTTL:        a.Config.JWTTTL,
		CountryCode:   a.Config.DefaultCountryCode,
		WebhookSecret: []byte(a.Config.WebhookSecret),
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:            a.Logger,
		UserService:       services.UserService,
		LedgerService:     services.LedgerService,
		DispatchService:   services.DispatchService,
		CommissionService: services.CommissionService,
		JWTSecretKey:      []byte(a.Config.JWTSecret),
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	runner := commission.New(services.CommissionService, a.Logger).
		SetInterval(a.Config.CommissionInterval)

	go runner.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// user repo
	userRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewUserRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.UserRepoName), userRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// credit transaction repo
	creditTransactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewCreditTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.CreditTransactionRepoName),
		creditTransactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// message log repo
	messageLogRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewMessageLogRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.MessageLogRepoName),
		messageLogRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// reseller commission repo
	commissionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewResellerCommissionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.ResellerCommissionRepoName),
		commissionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
