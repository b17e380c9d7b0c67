package service

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/bulkgate/internal/service/psswd"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

type AppServices struct {
	UserService       *UserService
	LedgerService     *LedgerService
	CommissionService *CommissionService
	DispatchService   *DispatchService
}

type FactoryArgs struct {
	Provider      ProviderClient
	Bridge        BridgeClient
	Logger        *logrus.Logger
	JWTSecret     []byte
	JWTIssuer     string
	JWTTTL        time.Duration
	CountryCode   string
	WebhookSecret []byte
}

func Factory(unitOfWork uow.UOW, args FactoryArgs) (*AppServices, error) {
	ledgerService, ledgerErr := NewLedgerService(unitOfWork)
	if ledgerErr != nil {
		return nil, fmt.Errorf("service factory: %s", ledgerErr.Error())
	}

	userService, userErr := NewUserService(unitOfWork, UserServiceArgs{
		Hasher:    psswd.PasswordHash(""),
		Ledger:    ledgerService,
		JWTSecret: args.JWTSecret,
		JWTIssuer: args.JWTIssuer,
		JWTTTL:    args.JWTTTL,
	})
	if userErr != nil {
		return nil, fmt.Errorf("service factory: %s", userErr.Error())
	}

	commissionService, commissionErr := NewCommissionService(unitOfWork, ledgerService)
	if commissionErr != nil {
		return nil, fmt.Errorf("service factory: %s", commissionErr.Error())
	}

	dispatchService, dispatchErr := NewDispatchService(unitOfWork, DispatchServiceArgs{
		Provider:      args.Provider,
		Bridge:        args.Bridge,
		Logger:        args.Logger,
		CountryCode:   args.CountryCode,
		WebhookSecret: args.WebhookSecret,
	})
	if dispatchErr != nil {
		return nil, fmt.Errorf("service factory: %s", dispatchErr.Error())
	}

	return &AppServices{
		UserService:       userService,
		LedgerService:     ledgerService,
		CommissionService: commissionService,
		DispatchService:   dispatchService,
	}, nil
}
