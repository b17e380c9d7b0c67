package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

type HTTPClientTestSuite struct {
	suite.Suite
}

func TestHTTPClientSuite(t *testing.T) {
	suite.Run(t, new(HTTPClientTestSuite))
}

func (s *HTTPClientTestSuite) TestSendMessageOk() {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/acc-1/messages", r.URL.Path)
		s.Equal("Bearer token-1", r.Header.Get("Authorization"))

		s.Require().NoError(json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.100"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	result, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:        "919876543210",
		Body:      "hello",
		MediaType: domain.MessageTypeText,
	})
	s.Require().NoError(err)
	s.Equal("wamid.100", result.ExternalID)

	s.Equal("whatsapp", gotPayload["messaging_product"])
	s.Equal("919876543210", gotPayload["to"])
	s.Equal("text", gotPayload["type"])
	s.Contains(gotPayload, "text")
}

func (s *HTTPClientTestSuite) TestSendMessageTemplate() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		// при указанном шаблоне текстовое тело не отправляется.
		s.Contains(payload, "template")
		s.NotContains(payload, "text")

		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.101"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:         "919876543210",
		TemplateID: "welcome",
		MediaType:  domain.MessageTypeText,
	})
	s.Require().NoError(err)
}

func (s *HTTPClientTestSuite) TestSendMessageMediaLink() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		s.Equal("image", payload["type"])

		image, ok := payload["image"].(map[string]any)
		s.Require().True(ok)
		s.Equal("https://example.com/pic.jpg", image["link"])

		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.102"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:        "919876543210",
		Body:      "look",
		MediaURL:  "https://example.com/pic.jpg",
		MediaType: domain.MessageTypeImage,
	})
	s.Require().NoError(err)
}

func (s *HTTPClientTestSuite) TestSendMessageAPIError() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid phone number"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:        "bad",
		Body:      "hello",
		MediaType: domain.MessageTypeText,
	})

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("Invalid phone number", apiErr.Message)
}

func (s *HTTPClientTestSuite) TestSendMessageUnknownError() {
	// ответ без id сообщения и без описания ошибки.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:        "919876543210",
		Body:      "hello",
		MediaType: domain.MessageTypeText,
	})

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("Unknown error", apiErr.Message)
}

func (s *HTTPClientTestSuite) TestSendMessageNonJSONErrorBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("Bad Gateway"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.SendMessage(context.Background(), SendMessageArgs{
		To:        "919876543210",
		Body:      "hello",
		MediaType: domain.MessageTypeText,
	})

	var statusErr *StatusCodeError
	s.Require().ErrorAs(err, &statusErr)
	s.Equal(http.StatusBadGateway, statusErr.Code)
}

func (s *HTTPClientTestSuite) TestSendMessageTimeout() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.103"}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.SendMessage(ctx, SendMessageArgs{
		To:        "919876543210",
		Body:      "hello",
		MediaType: domain.MessageTypeText,
	})
	// таймаут отличим от ошибки провайдера, вызывающая сторона может ретраить.
	s.Require().ErrorIs(err, ErrTimeout)
}

func (s *HTTPClientTestSuite) TestUploadMedia() {
	filePath := filepath.Join(s.T().TempDir(), "pic.jpg")
	s.Require().NoError(os.WriteFile(filePath, []byte("fake image bytes"), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("/acc-1/media", r.URL.Path)
		s.Equal("Bearer token-1", r.Header.Get("Authorization"))

		file, header, fileErr := r.FormFile("file")
		s.Require().NoError(fileErr)
		defer file.Close() //nolint:errcheck

		s.Equal("pic.jpg", header.Filename)
		content, readErr := io.ReadAll(file)
		s.Require().NoError(readErr)
		s.Equal("fake image bytes", string(content))
		s.Equal("image/jpeg", r.FormValue("type"))

		_, _ = w.Write([]byte(`{"id":"media.1","url":"https://cdn.example.com/media.1"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	result, err := client.UploadMedia(context.Background(), filePath, "image/jpeg")
	s.Require().NoError(err)
	s.Equal("media.1", result.MediaID)
	s.Equal("https://cdn.example.com/media.1", result.URL)
}

func (s *HTTPClientTestSuite) TestUploadMediaAPIError() {
	filePath := filepath.Join(s.T().TempDir(), "big.mp4")
	s.Require().NoError(os.WriteFile(filePath, []byte("too big"), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"File too large"}}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	_, err := client.UploadMedia(context.Background(), filePath, "video/mp4")

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("File too large", apiErr.Message)
}

func (s *HTTPClientTestSuite) TestUploadMediaMissingFile() {
	client := NewHTTPClient("http://unused", "acc-1", "token-1")

	_, err := client.UploadMedia(context.Background(), filepath.Join(s.T().TempDir(), "nope.jpg"), "image/jpeg")
	s.Require().Error(err)
}

func (s *HTTPClientTestSuite) TestGetMessageStatus() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/wamid.100", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"delivered","timestamp":"1700000000"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "acc-1", "token-1")

	result, err := client.GetMessageStatus(context.Background(), "wamid.100")
	s.Require().NoError(err)
	s.Equal("delivered", result.Status)
	s.Equal("1700000000", result.Timestamp)
}

func (s *HTTPClientTestSuite) TestBridgeSendMessage() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Equal("/send-message", r.URL.Path)

		var payload map[string]any
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&payload))
		s.Equal("919876543210", payload["phone"])
		s.Equal("hello", payload["message"])
		s.Equal("session-1", payload["session_id"])

		_, _ = w.Write([]byte(`{"success":true,"message_id":"bridge.1"}`))
	}))
	defer server.Close()

	client := NewBridgeClient(server.URL)

	result, err := client.SendMessage(context.Background(), "919876543210", "hello", "session-1")
	s.Require().NoError(err)
	s.Equal("bridge.1", result.ExternalID)
}

func (s *HTTPClientTestSuite) TestBridgeSendMessageFailure() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"session not connected"}`))
	}))
	defer server.Close()

	client := NewBridgeClient(server.URL)

	_, err := client.SendMessage(context.Background(), "919876543210", "hello", "session-1")

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("session not connected", apiErr.Message)
}
