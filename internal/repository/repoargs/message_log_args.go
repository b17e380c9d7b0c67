package repoargs

import (
	"time"

	"github.com/fsdevblog/bulkgate/internal/domain"
)

type MessageLogCreate struct {
	UserID      int64
	PhoneNumber string
	ExternalID  *string
	MessageType domain.MessageType
	Status      domain.MessageStatusType
	Error       string
}

// UsageByType агрегат количества сообщений юзера в разрезе типа за период.
type UsageByType struct {
	MessageType domain.MessageType
	Count       int64
}

type UsageWindow struct {
	UserID int64
	Since  time.Time
}
