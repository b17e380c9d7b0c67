package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/logger"
	"github.com/fsdevblog/bulkgate/internal/service"
	"github.com/fsdevblog/bulkgate/internal/service/tokens"
	"github.com/fsdevblog/bulkgate/internal/transport/api/mocks"
	"github.com/fsdevblog/bulkgate/internal/transport/api/testutils"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	router          *gin.Engine
	mockUserService *mocks.MockUserServicer
	jwtSecret       []byte
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}

func (s *AuthHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())

	s.mockUserService = mocks.NewMockUserServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	router, routerErr := New(RouterArgs{
		Logger:       logger.New(io.Discard),
		UserService:  s.mockUserService,
		JWTSecretKey: s.jwtSecret,
	})
	s.Require().NoError(routerErr)
	s.router = router
}

func (s *AuthHandlerTestSuite) TestRegister() {
	validPayload := []byte(`{"username":"alice","email":"alice@example.com","password":"password123"}`)
	shortPassPayload := []byte(`{"username":"alice","email":"alice@example.com","password":"short"}`)
	badEmailPayload := []byte(`{"username":"alice","email":"not-an-email","password":"password123"}`)
	duplicatePayload := []byte(`{"username":"taken","email":"taken@example.com","password":"password123"}`)

	// Моки
	s.mockUserService.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.RegisterUserArgs) (*domain.User, error) {
			s.Equal("alice", args.Username)
			return &domain.User{ID: 1, Username: args.Username, Email: args.Email, Role: domain.RoleUser}, nil
		}).Times(1)
	s.mockUserService.EXPECT().
		Register(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, args service.RegisterUserArgs) (*domain.User, error) {
			s.Equal("taken", args.Username)
			return nil, fmt.Errorf("registering user: %w", domain.ErrDuplicateKey)
		}).Times(1)

	cases := []struct {
		name       string
		payload    []byte
		wantStatus int
	}{
		{name: "ok", payload: validPayload, wantStatus: http.StatusCreated},
		// валидация отсеивает запрос до вызова сервиса.
		{name: "short password", payload: shortPassPayload, wantStatus: http.StatusUnprocessableEntity},
		{name: "bad email", payload: badEmailPayload, wantStatus: http.StatusUnprocessableEntity},
		{name: "duplicate", payload: duplicatePayload, wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + RegisterRoute,
				Body:   bytes.NewReader(t.payload),
			})
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *AuthHandlerTestSuite) TestLogin() {
	validPayload := []byte(`{"login":"alice","password":"password123"}`)
	wrongPassPayload := []byte(`{"login":"alice","password":"wrong pass 1"}`)
	suspendedPayload := []byte(`{"login":"suspended","password":"password123"}`)

	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Login: "alice", Password: "password123"}).
		Return(&domain.User{ID: 1, Username: "alice"}, "jwt-token", nil)
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Login: "alice", Password: "wrong pass 1"}).
		Return(nil, "", fmt.Errorf("logging in: %w", domain.ErrPasswordMissMatch))
	s.mockUserService.EXPECT().
		Login(gomock.Any(), service.LoginUserArgs{Login: "suspended", Password: "password123"}).
		Return(nil, "", fmt.Errorf("logging in: %w", domain.ErrUserSuspended))

	cases := []struct {
		name       string
		payload    []byte
		wantStatus int
		wantToken  bool
	}{
		{name: "ok", payload: validPayload, wantStatus: http.StatusOK, wantToken: true},
		{name: "wrong password", payload: wrongPassPayload, wantStatus: http.StatusUnauthorized},
		{name: "suspended", payload: suspendedPayload, wantStatus: http.StatusUnauthorized},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + LoginRoute,
				Body:   bytes.NewReader(t.payload),
			})
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)

			if t.wantToken {
				var body struct {
					Success bool   `json:"success"`
					Token   string `json:"token"`
				}
				s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
				s.True(body.Success)
				s.Equal("jwt-token", body.Token)
				s.Equal("Bearer jwt-token", resp.Header.Get("Authorization"))
			}
		})
	}
}

func (s *AuthHandlerTestSuite) TestRefresh() {
	s.mockUserService.EXPECT().
		RefreshToken("good-token").
		Return("new-token", nil)
	s.mockUserService.EXPECT().
		RefreshToken("bad-token").
		Return("", tokens.ErrTokenInvalid)

	cases := []struct {
		name       string
		payload    []byte
		wantStatus int
	}{
		{name: "ok", payload: []byte(`{"token":"good-token"}`), wantStatus: http.StatusOK},
		{name: "invalid token", payload: []byte(`{"token":"bad-token"}`), wantStatus: http.StatusUnauthorized},
		{name: "empty body", payload: []byte(`{}`), wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + RefreshRoute,
				Body:   bytes.NewReader(t.payload),
			})
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *AuthHandlerTestSuite) TestMe() {
	token, tokenErr := tokens.GenerateUserJWT(tokens.GenerateArgs{
		UserID: 1,
		Role:   domain.RoleUser,
		Expire: time.Hour,
	}, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.mockUserService.EXPECT().
		GetByID(gomock.Any(), int64(1)).
		Return(&domain.User{ID: 1, Username: "alice"}, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + MeRoute,
	}, testutils.WithBearerToken(token))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *AuthHandlerTestSuite) TestMeUnauthorized() {
	// без токена сервис не вызывается.
	s.mockUserService.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + MeRoute,
	})
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
