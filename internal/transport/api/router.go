package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup = "/api"

	RegisterRoute      = "/auth/register"
	LoginRoute         = "/auth/login"
	RefreshRoute       = "/auth/refresh"
	LogoutRoute        = "/auth/logout"
	MeRoute            = "/auth/me"
	BalanceRoute       = "/credits/balance"
	CreditHistoryRoute = "/credits/history"
	CreditAddRoute     = "/credits/add"
	SendRoute          = "/messages/send"
	SendBatchRoute     = "/messages/batch"
	SendBridgeRoute    = "/messages/bridge"
	MessageStatusRoute = "/messages/:id/status"
	CommissionPayRoute = "/commissions/pay"
	CommissionsRoute   = "/commissions"
	CommissionCompute  = "/commissions/compute/:customerID"
	ProviderWebhook    = "/webhooks/provider"
)

type RouterArgs struct {
	Logger            *logrus.Logger
	UserService       UserServicer
	LedgerService     LedgerServicer
	DispatchService   DispatchServicer
	CommissionService CommissionServicer
	JWTSecretKey      []byte
}

func New(args RouterArgs) (*gin.Engine, error) {
	if valErr := registerValidators(); valErr != nil {
		return nil, valErr
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	authHandler := NewAuthHandler(args.UserService)
	creditsHandler := NewCreditsHandler(args.LedgerService)
	messagesHandler := NewMessagesHandler(args.DispatchService, args.LedgerService)
	commissionsHandler := NewCommissionsHandler(args.CommissionService, args.UserService)
	webhookHandler := NewWebhookHandler(args.DispatchService)

	api := r.Group(RouteGroup)

	api.POST(RegisterRoute, authHandler.Register)
	api.POST(LoginRoute, authHandler.Login)
	api.POST(RefreshRoute, authHandler.Refresh)
	// колбек провайдера аутентифицируется подписью тела, не токеном.
	api.POST(ProviderWebhook, webhookHandler.Provider)

	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного пользователя.
	api.POST(LogoutRoute, authHandler.Logout)
	api.GET(MeRoute, authHandler.Me)

	api.GET(BalanceRoute, creditsHandler.Balance)
	api.GET(CreditHistoryRoute, creditsHandler.History)
	api.POST(CreditAddRoute, middlewares.RoleRequired(domain.RoleAdmin), creditsHandler.Add)

	api.POST(SendRoute, messagesHandler.Send)
	api.POST(SendBatchRoute, messagesHandler.SendBatch)
	api.POST(SendBridgeRoute, messagesHandler.SendBridge)
	api.GET(MessageStatusRoute, messagesHandler.Status)

	resellerOnly := middlewares.RoleRequired(domain.RoleReseller, domain.RoleAdmin)
	api.GET(CommissionCompute, resellerOnly, commissionsHandler.Compute)
	api.POST(CommissionPayRoute, resellerOnly, commissionsHandler.Pay)
	api.GET(CommissionsRoute, resellerOnly, commissionsHandler.Index)

	return r, nil
}
