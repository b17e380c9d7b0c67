package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const RouteBridgeSend = "/send-message"

const bridgeRequestTimeout = 30 * time.Second

// BridgeClient клиент локального процесса автоматизации, отправляющего сообщения
// через персональную сессию. Контракт: POST {phone, message, session_id},
// ответ {success, message_id?, error?}.
type BridgeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBridgeClient(baseURL string) BridgeClient {
	return BridgeClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: bridgeRequestTimeout,
		},
	}
}

type bridgeRequest struct {
	Phone     string `json:"phone"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type bridgeResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
	Error     string `json:"error"`
}

// SendMessage отправляет сообщение через мост. Ответ с success=false превращается
// в *APIError с текстом моста.
//
//nolint:nonamedreturns
func (c BridgeClient) SendMessage(ctx context.Context, phone, message, sessionID string) (result *SendResult, err error) {
	raw, marshalErr := json.Marshal(bridgeRequest{
		Phone:     phone,
		Message:   message,
		SessionID: sessionID,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal bridge request: %s", marshalErr.Error())
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RouteBridgeSend, bytes.NewReader(raw))
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("do request: %w", convertTransportErr(doErr))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = fmt.Errorf("read response: %w", convertTransportErr(readErr))
		return nil, err
	}

	var response bridgeResponse
	if jsonErr := json.Unmarshal(body, &response); jsonErr != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			err = NewStatusCodeError(resp.StatusCode)
			return nil, err
		}
		err = fmt.Errorf("parse response: %s", jsonErr.Error())
		return nil, err
	}

	if !response.Success {
		return nil, NewAPIError(response.Error)
	}

	return &SendResult{ExternalID: response.MessageID}, nil
}
