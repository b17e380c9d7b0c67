// Package provider содержит HTTP клиенты к внешнему API рассылки: официальному
// облачному и локальному мосту автоматизации.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

const (
	RouteMessages = "/%s/messages"
	RouteMedia    = "/%s/media"
	RouteStatus   = "/%s"
)

const defaultRequestTimeout = 10 * time.Second

const messagingProduct = "whatsapp"

// HTTPClient клиент облачного API провайдера.
type HTTPClient struct {
	baseURL    string
	accountID  string
	token      string
	httpClient *http.Client
}

func NewHTTPClient(baseURL, accountID, token string) HTTPClient {
	return HTTPClient{
		baseURL:   baseURL,
		accountID: accountID,
		token:     token,
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
	}
}

// SendMessage отправляет одно сообщение. Если указан TemplateID, отправляется шаблонное
// сообщение, иначе текстовое; вложение передается ссылкой в поле соответствующее типу.
// Отсутствие id сообщения в ответе трактуется как *APIError с текстом провайдера
// (или "Unknown error"), сетевой таймаут - как ErrTimeout.
func (c HTTPClient) SendMessage(ctx context.Context, args SendMessageArgs) (*SendResult, error) {
	payload := map[string]any{
		"messaging_product": messagingProduct,
		"to":                args.To,
		"type":              args.MediaType.ProviderField(),
	}

	if args.TemplateID != "" {
		payload["template"] = map[string]any{"name": args.TemplateID}
	} else {
		payload["text"] = map[string]any{"body": args.Body}
	}

	if args.MediaURL != "" && args.MediaType != domain.MessageTypeText {
		payload[args.MediaType.ProviderField()] = map[string]any{"link": args.MediaURL}
	}

	url := c.baseURL + fmt.Sprintf(RouteMessages, c.accountID)

	var response sendResponse
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &response); err != nil {
		return nil, err
	}

	if len(response.Messages) == 0 || response.Messages[0].ID == "" {
		var msg string
		if response.Error != nil {
			msg = response.Error.Message
		}
		return nil, NewAPIError(msg)
	}

	return &SendResult{ExternalID: response.Messages[0].ID}, nil
}

// UploadMedia загружает файл провайдеру через multipart запрос.
//
//nolint:nonamedreturns
func (c HTTPClient) UploadMedia(ctx context.Context, filePath, mimeType string) (result *MediaResult, err error) {
	file, openErr := os.Open(filePath)
	if openErr != nil {
		return nil, fmt.Errorf("open media file: %s", openErr.Error())
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, partErr := writer.CreateFormFile("file", filepath.Base(filePath))
	if partErr != nil {
		return nil, fmt.Errorf("create multipart field: %s", partErr.Error())
	}
	if _, copyErr := io.Copy(part, file); copyErr != nil {
		return nil, fmt.Errorf("copy media file: %s", copyErr.Error())
	}
	if fieldErr := writer.WriteField("type", mimeType); fieldErr != nil {
		return nil, fmt.Errorf("write type field: %s", fieldErr.Error())
	}
	if closeErr := writer.Close(); closeErr != nil {
		return nil, fmt.Errorf("close multipart writer: %s", closeErr.Error())
	}

	url := c.baseURL + fmt.Sprintf(RouteMedia, c.accountID)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if reqErr != nil {
		return nil, fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	var response mediaResponse
	if doErr := c.do(req, &response); doErr != nil {
		return nil, doErr
	}

	if response.ID == "" {
		var msg string
		if response.Error != nil {
			msg = response.Error.Message
		} else {
			msg = "Upload failed"
		}
		return nil, NewAPIError(msg)
	}

	return &MediaResult{MediaID: response.ID, URL: response.URL}, nil
}

// GetMessageStatus опрашивает провайдера о текущем статусе доставки сообщения.
func (c HTTPClient) GetMessageStatus(ctx context.Context, externalID string) (*StatusResult, error) {
	url := c.baseURL + fmt.Sprintf(RouteStatus, externalID)

	var response statusResponse
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &response); err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, NewAPIError(response.Error.Message)
	}

	return &StatusResult{Status: response.Status, Timestamp: response.Timestamp}, nil
}

func (c HTTPClient) doJSON(ctx context.Context, method, url string, payload any, target any) error {
	var body io.Reader
	if payload != nil {
		raw, marshalErr := json.Marshal(payload)
		if marshalErr != nil {
			return fmt.Errorf("marshal request: %s", marshalErr.Error())
		}
		body = bytes.NewReader(raw)
	}

	req, reqErr := http.NewRequestWithContext(ctx, method, url, body)
	if reqErr != nil {
		return fmt.Errorf("create request: %s", reqErr.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	return c.do(req, target)
}

// do выполняет запрос и парсит тело ответа в target. Тело парсится и для статусов >= 400:
// провайдер кладет описание ошибки в {error:{message}} вне зависимости от кода ответа.
//
//nolint:nonamedreturns
func (c HTTPClient) do(req *http.Request, target any) (err error) {
	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf("do request: %w", convertTransportErr(doErr))
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = fmt.Errorf("read response: %w", convertTransportErr(readErr))
		return err
	}

	if jsonErr := json.Unmarshal(raw, target); jsonErr != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			err = NewStatusCodeError(resp.StatusCode)
			return err
		}
		err = fmt.Errorf("parse response: %s", jsonErr.Error())
		return err
	}

	return nil
}
