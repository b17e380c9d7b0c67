package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/logger"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/internal/service/mocks"
	"github.com/fsdevblog/bulkgate/internal/transport/provider"
	"github.com/fsdevblog/bulkgate/pkg/uow"
	uowmocks "github.com/fsdevblog/bulkgate/pkg/uow/mocks"
)

type DispatchServiceTestSuite struct {
	suite.Suite
	mockUOW      *uowmocks.MockUOW
	mockMsgRepo  *mocks.MockMessageLogRepository
	mockProvider *mocks.MockProviderClient
	mockBridge   *mocks.MockBridgeClient
	secret       []byte
	dispatch     *DispatchService
}

func TestDispatchServiceSuite(t *testing.T) {
	suite.Run(t, new(DispatchServiceTestSuite))
}

func (s *DispatchServiceTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(mockCtrl)
	s.mockMsgRepo = mocks.NewMockMessageLogRepository(mockCtrl)
	s.mockProvider = mocks.NewMockProviderClient(mockCtrl)
	s.mockBridge = mocks.NewMockBridgeClient(mockCtrl)
	s.secret = []byte("webhook secret")

	s.mockUOW.EXPECT().GetRepository(uow.RepositoryName(repoargs.MessageLogRepoName)).
		Return(s.mockMsgRepo, nil).AnyTimes()

	l := logger.New(io.Discard)

	dispatch, servErr := NewDispatchService(s.mockUOW, DispatchServiceArgs{
		Provider:      s.mockProvider,
		Bridge:        s.mockBridge,
		Logger:        l,
		CountryCode:   "91",
		WebhookSecret: s.secret,
	})
	s.Require().NoError(servErr)
	s.dispatch = dispatch
}

func (s *DispatchServiceTestSuite) sign(body []byte) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *DispatchServiceTestSuite) TestSendOk() {
	var userID int64 = 1

	s.mockProvider.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args provider.SendMessageArgs) (*provider.SendResult, error) {
			// десятизначный номер дополняется кодом страны.
			s.Equal("919876543210", args.To)
			return &provider.SendResult{ExternalID: "wamid.1"}, nil
		})

	s.mockMsgRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.MessageLogCreate) (*domain.MessageLog, error) {
			s.Equal(domain.MessageStatusSent, args.Status)
			s.Require().NotNil(args.ExternalID)
			s.Equal("wamid.1", *args.ExternalID)
			return &domain.MessageLog{ID: 1, UserID: args.UserID, ExternalID: args.ExternalID, Status: args.Status}, nil
		})

	log, err := s.dispatch.Send(context.Background(), userID, SendArgs{
		Phone: "98765-43210",
		Body:  "hello",
	})
	s.Require().NoError(err)
	s.Equal(domain.MessageStatusSent, log.Status)
}

func (s *DispatchServiceTestSuite) TestSendProviderError() {
	var userID int64 = 1

	s.mockProvider.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		Return(nil, provider.NewAPIError("rate limited"))

	s.mockMsgRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.MessageLogCreate) (*domain.MessageLog, error) {
			// неудачная попытка тоже остается в логе, с текстом ошибки.
			s.Equal(domain.MessageStatusFailed, args.Status)
			s.NotEmpty(args.Error)
			return &domain.MessageLog{ID: 1, UserID: args.UserID, Status: args.Status, Error: args.Error}, nil
		})

	log, err := s.dispatch.Send(context.Background(), userID, SendArgs{
		Phone: "9876543210",
		Body:  "hello",
	})
	s.Require().Error(err)
	s.Require().NotNil(log)
	s.Equal(domain.MessageStatusFailed, log.Status)
}

func (s *DispatchServiceTestSuite) TestSendBatchPartialFailure() {
	var userID int64 = 1
	failingPhone := "911111111111"

	s.mockProvider.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args provider.SendMessageArgs) (*provider.SendResult, error) {
			if args.To == failingPhone {
				return nil, provider.NewAPIError("invalid recipient")
			}
			return &provider.SendResult{ExternalID: "wamid." + args.To}, nil
		}).Times(3)

	// по строке лога на каждый контакт, включая неудачный.
	s.mockMsgRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, args repoargs.MessageLogCreate) (*domain.MessageLog, error) {
			return &domain.MessageLog{ID: 1, UserID: args.UserID, ExternalID: args.ExternalID, Status: args.Status}, nil
		}).Times(3)

	contacts := []BatchContact{
		{Phone: "912222222222", Message: "hi"},
		{Phone: failingPhone, Message: "hi"},
		{Phone: "913333333333", Message: "hi"},
	}

	result, err := s.dispatch.SendBatch(context.Background(), userID, contacts, "")
	s.Require().NoError(err)
	s.Equal(2, result.SuccessCount)
	s.Equal(1, result.FailureCount)
	s.Len(result.Results, 3)
	s.Equal(domain.MessageStatusFailed, result.Results[1].Status)
	s.NotEmpty(result.Results[1].Error)
}

func (s *DispatchServiceTestSuite) TestSendBatchContextCanceled() {
	ctx, cancel := context.WithCancel(context.Background())

	s.mockProvider.EXPECT().
		SendMessage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ provider.SendMessageArgs) (*provider.SendResult, error) {
			cancel() // отмена после первой отправки.
			return &provider.SendResult{ExternalID: "wamid.1"}, nil
		})
	s.mockMsgRepo.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.MessageLog{ID: 1}, nil)

	contacts := []BatchContact{
		{Phone: "912222222222", Message: "hi"},
		{Phone: "913333333333", Message: "hi"},
	}

	result, err := s.dispatch.SendBatch(ctx, 1, contacts, "")
	s.Require().ErrorIs(err, context.Canceled)
	s.Equal(1, result.SuccessCount)
}

func (s *DispatchServiceTestSuite) TestHandleWebhookInvalidSignature() {
	body := []byte(`{"entry":[]}`)

	// ни одного обращения к репозиторию при неверной подписи.
	s.mockMsgRepo.EXPECT().AdvanceStatusByExternalID(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	err := s.dispatch.HandleWebhook(context.Background(), body, "deadbeef")
	s.Require().ErrorIs(err, domain.ErrInvalidSignature)
}

func (s *DispatchServiceTestSuite) TestHandleWebhookMalformedPayload() {
	body := []byte(`{malformed`)

	s.mockMsgRepo.EXPECT().AdvanceStatusByExternalID(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// валидная подпись с непарсящимся телом подтверждается без изменений.
	err := s.dispatch.HandleWebhook(context.Background(), body, s.sign(body))
	s.Require().NoError(err)
}

func (s *DispatchServiceTestSuite) TestHandleWebhookStatusUpdate() {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"field": "message_status",
				"value": {"messages": [{"id": "wamid.42", "status": "delivered"}]}
			}]
		}]
	}`)

	s.mockMsgRepo.EXPECT().
		AdvanceStatusByExternalID(gomock.Any(), "wamid.42", domain.MessageStatusDelivered).
		Return(true, nil)

	err := s.dispatch.HandleWebhook(context.Background(), body, s.sign(body))
	s.Require().NoError(err)
}

func (s *DispatchServiceTestSuite) TestHandleWebhookUnknownExternalID() {
	body := []byte(`{
		"entry": [{
			"changes": [{
				"field": "message_status",
				"value": {"messages": [{"id": "wamid.unknown", "status": "read"}]}
			}]
		}]
	}`)

	// неизвестный внешний id подтверждается как no-op.
	s.mockMsgRepo.EXPECT().
		AdvanceStatusByExternalID(gomock.Any(), "wamid.unknown", domain.MessageStatusRead).
		Return(false, nil)

	err := s.dispatch.HandleWebhook(context.Background(), body, s.sign(body))
	s.Require().NoError(err)
}

func (s *DispatchServiceTestSuite) TestMessageStatusLocal() {
	updatedAt := time.Now()
	s.mockMsgRepo.EXPECT().
		FindByID(gomock.Any(), int64(5)).
		Return(&domain.MessageLog{ID: 5, Status: domain.MessageStatusFailed, UpdatedAt: updatedAt}, nil)

	log, status, err := s.dispatch.MessageStatus(context.Background(), 5)
	s.Require().NoError(err)
	s.Equal(int64(5), log.ID)
	// без внешнего id статус берется из лога, провайдер не опрашивается.
	s.Equal(string(domain.MessageStatusFailed), status.Status)
}

func (s *DispatchServiceTestSuite) TestMessageStatusRemote() {
	externalID := "wamid.7"
	s.mockMsgRepo.EXPECT().
		FindByID(gomock.Any(), int64(7)).
		Return(&domain.MessageLog{ID: 7, ExternalID: &externalID, Status: domain.MessageStatusSent}, nil)
	s.mockProvider.EXPECT().
		GetMessageStatus(gomock.Any(), externalID).
		Return(&provider.StatusResult{Status: "delivered"}, nil)

	_, status, err := s.dispatch.MessageStatus(context.Background(), 7)
	s.Require().NoError(err)
	s.Equal("delivered", status.Status)
}

func (s *DispatchServiceTestSuite) TestUploadMedia() {
	s.mockProvider.EXPECT().
		UploadMedia(gomock.Any(), "/tmp/pic.jpg", "image/jpeg").
		Return(&provider.MediaResult{MediaID: "media.1", URL: "https://cdn.example.com/media.1"}, nil)

	result, err := s.dispatch.UploadMedia(context.Background(), "/tmp/pic.jpg", "image/jpeg")
	s.Require().NoError(err)
	s.Equal("media.1", result.MediaID)
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		name        string
		phone       string
		countryCode string
		want        string
	}{
		{name: "ten digits get country code", phone: "9876543210", countryCode: "91", want: "919876543210"},
		{name: "formatting stripped", phone: "+91 (98765) 432-10", countryCode: "91", want: "919876543210"},
		{name: "already with country code", phone: "919876543210", countryCode: "91", want: "919876543210"},
		{name: "short number untouched", phone: "12345", countryCode: "91", want: "12345"},
		{name: "dashes only", phone: "98765-43210", countryCode: "1", want: "19876543210"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizePhone(tc.phone, tc.countryCode)
			if got != tc.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tc.phone, tc.countryCode, got, tc.want)
			}
		})
	}
}
