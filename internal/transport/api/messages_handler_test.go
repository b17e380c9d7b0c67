package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/logger"
	"github.com/fsdevblog/bulkgate/internal/service"
	"github.com/fsdevblog/bulkgate/internal/service/tokens"
	"github.com/fsdevblog/bulkgate/internal/transport/api/mocks"
	"github.com/fsdevblog/bulkgate/internal/transport/api/testutils"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
)

type MessagesHandlerTestSuite struct {
	suite.Suite
	router              *gin.Engine
	mockDispatchService *mocks.MockDispatchServicer
	mockLedgerService   *mocks.MockLedgerServicer
	jwtSecret           []byte
	userToken           string
}

func TestMessagesHandlerSuite(t *testing.T) {
	suite.Run(t, new(MessagesHandlerTestSuite))
}

func (s *MessagesHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockDispatchService = mocks.NewMockDispatchServicer(mockCtrl)
	s.mockLedgerService = mocks.NewMockLedgerServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	router, routerErr := New(RouterArgs{
		Logger:          logger.New(io.Discard),
		DispatchService: s.mockDispatchService,
		LedgerService:   s.mockLedgerService,
		JWTSecretKey:    s.jwtSecret,
	})
	s.Require().NoError(routerErr)
	s.router = router

	token, tokenErr := tokens.GenerateUserJWT(tokens.GenerateArgs{
		UserID: 1,
		Role:   domain.RoleUser,
		Expire: time.Hour,
	}, s.jwtSecret)
	s.Require().NoError(tokenErr)
	s.userToken = token
}

func (s *MessagesHandlerTestSuite) TestSend() {
	payload := []byte(`{"phone":"9876543210","message":"hello"}`)

	s.mockLedgerService.EXPECT().
		Debit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.DebitArgs) (*domain.CreditTransaction, error) {
			s.Equal(int64(1), args.UserID)
			// текстовое сообщение стоит 0.5 кредита.
			s.True(args.Amount.Equal(decimal.NewFromFloat(0.5)))
			return &domain.CreditTransaction{ID: 1}, nil
		})
	s.mockDispatchService.EXPECT().
		Send(gomock.Any(), int64(1), gomock.Any()).
		Return(&domain.MessageLog{ID: 1, Status: domain.MessageStatusSent}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + SendRoute,
		Body:   bytes.NewReader(payload),
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *MessagesHandlerTestSuite) TestSendInsufficientCredits() {
	payload := []byte(`{"phone":"9876543210","message":"hello"}`)

	s.mockLedgerService.EXPECT().
		Debit(gomock.Any(), gomock.Any()).
		Return(nil, domain.NewInsufficientCreditsError(decimal.Zero, decimal.NewFromFloat(0.5)))
	// до отправки дело не доходит.
	s.mockDispatchService.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + SendRoute,
		Body:   bytes.NewReader(payload),
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusPaymentRequired, resp.StatusCode)

	var body struct {
		Success   bool    `json:"success"`
		Available float64 `json:"available"`
		Required  float64 `json:"required"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.False(body.Success)
	s.InDelta(0.5, body.Required, 0.001)
}

func (s *MessagesHandlerTestSuite) TestSendInvalidPhone() {
	payload := []byte(`{"phone":"abc","message":"hello"}`)

	s.mockLedgerService.EXPECT().Debit(gomock.Any(), gomock.Any()).Times(0)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + SendRoute,
		Body:   bytes.NewReader(payload),
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *MessagesHandlerTestSuite) TestSendBatch() {
	payload := []byte(`{"contacts":[
		{"phone":"9876543210","message":"hi"},
		{"phone":"9876543211","message":"hi","mediaType":"image"}
	]}`)

	s.mockLedgerService.EXPECT().
		Debit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.DebitArgs) (*domain.CreditTransaction, error) {
			// 0.5 за текст + 1.0 за картинку одним списанием.
			s.True(args.Amount.Equal(decimal.NewFromFloat(1.5)))
			return &domain.CreditTransaction{ID: 1}, nil
		})
	s.mockDispatchService.EXPECT().
		SendBatch(gomock.Any(), int64(1), gomock.Any(), "").
		Return(&service.BatchResult{
			SuccessCount: 2,
			Results: []service.BatchItemResult{
				{Phone: "9876543210", Status: domain.MessageStatusSent},
				{Phone: "9876543211", Status: domain.MessageStatusSent},
			},
		}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodPost,
		URL:    RouteGroup + SendBatchRoute,
		Body:   bytes.NewReader(payload),
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Success      bool `json:"success"`
		SuccessCount int  `json:"successCount"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.True(body.Success)
	s.Equal(2, body.SuccessCount)
}

func (s *MessagesHandlerTestSuite) TestStatusForeignMessage() {
	// сообщение другого юзера: для владельца токена неотличимо от несуществующего.
	s.mockDispatchService.EXPECT().
		MessageStatus(gomock.Any(), int64(5)).
		Return(&domain.MessageLog{ID: 5, UserID: 99, Status: domain.MessageStatusSent},
			&provider.StatusResult{Status: "sent"}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + "/messages/5/status",
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *MessagesHandlerTestSuite) TestStatusOwnMessage() {
	s.mockDispatchService.EXPECT().
		MessageStatus(gomock.Any(), int64(5)).
		Return(&domain.MessageLog{ID: 5, UserID: 1, Status: domain.MessageStatusSent, MessageType: domain.MessageTypeText},
			&provider.StatusResult{Status: "delivered", Timestamp: "1700000000"}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + "/messages/5/status",
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("delivered", body.Status)
}
