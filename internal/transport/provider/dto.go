package provider

import "github.com/fsdevblog/bulkgate/internal/domain"

type SendMessageArgs struct {
	To         string
	Body       string
	MediaURL   string
	MediaType  domain.MessageType
	TemplateID string
}

type SendResult struct {
	ExternalID string
}

type MediaResult struct {
	MediaID string
	URL     string
}

type StatusResult struct {
	Status    string
	Timestamp string
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

type mediaResponse struct {
	ID    string     `json:"id"`
	URL   string     `json:"url"`
	Error *errorBody `json:"error"`
}

type statusResponse struct {
	Status    string     `json:"status"`
	Timestamp string     `json:"timestamp"`
	Error     *errorBody `json:"error"`
}

// WebhookPayload входящий колбек провайдера: {entry:[{changes:[{field, value}]}]}.
type WebhookPayload struct {
	Entry []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	Messages []WebhookMessage `json:"messages"`
}

type WebhookMessage struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const (
	WebhookFieldMessages      = "messages"
	WebhookFieldMessageStatus = "message_status"
)
