package pgrepo

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/bulkgate/internal/domain"
	"github.com/fsdevblog/bulkgate/internal/repository/repoargs"
	"github.com/fsdevblog/bulkgate/pkg/uow"
)

const messageLogColumns = `id, created_at, updated_at, user_id, phone_number, external_id, message_type, status, error`

// statusRankSQL выражение CASE, вычисляющее ранг статуса на стороне базы. Строится из
// domain.MessageStatusType.Rank, порядок статусов существует в единственном месте.
var statusRankSQL = buildStatusRankSQL()

func buildStatusRankSQL() string {
	statuses := []domain.MessageStatusType{
		domain.MessageStatusQueued,
		domain.MessageStatusSent,
		domain.MessageStatusDelivered,
		domain.MessageStatusRead,
		domain.MessageStatusFailed,
	}

	var b strings.Builder
	b.WriteString("CASE status")
	for _, status := range statuses {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", status, status.Rank())
	}
	// значение вне enum переход не повышает.
	fmt.Fprintf(&b, " ELSE %d END", domain.MessageStatusFailed.Rank())
	return b.String()
}

type MessageLogRepository struct {
	db uow.DBTX
}

func NewMessageLogRepository(db uow.DBTX) *MessageLogRepository {
	return &MessageLogRepository{db: db}
}

func (m *MessageLogRepository) Create(
	ctx context.Context,
	args repoargs.MessageLogCreate,
) (*domain.MessageLog, error) {
	row := m.db.QueryRow(ctx, `
		INSERT INTO message_logs (user_id, phone_number, external_id, message_type, status, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+messageLogColumns,
		args.UserID, args.PhoneNumber, args.ExternalID, args.MessageType, args.Status, args.Error,
	)
	log, err := scanMessageLog(row)
	if err != nil {
		return nil, convertErr(err, "creating message log")
	}
	return log, nil
}

func (m *MessageLogRepository) FindByID(ctx context.Context, id int64) (*domain.MessageLog, error) {
	row := m.db.QueryRow(ctx, `SELECT `+messageLogColumns+` FROM message_logs WHERE id = $1`, id)
	log, err := scanMessageLog(row)
	if err != nil {
		return nil, convertErr(err, "finding message log by id %d", id)
	}
	return log, nil
}

// AdvanceStatusByExternalID переводит сообщение в новый статус только если он строго выше
// текущего в порядке queued < sent < delivered < read (failed терминальный). Повторная
// доставка колбека и колбеки пришедшие не по порядку превращаются в no-op.
// Возвращает true, если строка была обновлена. Неизвестный external_id - тоже no-op.
func (m *MessageLogRepository) AdvanceStatusByExternalID(
	ctx context.Context,
	externalID string,
	status domain.MessageStatusType,
) (bool, error) {
	newRank := status.Rank()
	if newRank < 0 {
		return false, nil
	}
	tag, err := m.db.Exec(ctx, `
		UPDATE message_logs SET status = $2, updated_at = now()
		WHERE external_id = $1
		  AND status <> 'failed'
		  AND (`+statusRankSQL+`) < $3`,
		externalID, status, newRank,
	)
	if err != nil {
		return false, convertErr(err, "advancing status for external id %s", externalID)
	}
	return tag.RowsAffected() > 0, nil
}

// UsageSince возвращает количество сообщений юзера с момента since в разрезе типа.
func (m *MessageLogRepository) UsageSince(
	ctx context.Context,
	window repoargs.UsageWindow,
) ([]repoargs.UsageByType, error) {
	rows, err := m.db.Query(ctx, `
		SELECT message_type, COUNT(*) FROM message_logs
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY message_type`,
		window.UserID, window.Since,
	)
	if err != nil {
		return nil, convertErr(err, "aggregating usage for user %d", window.UserID)
	}
	defer rows.Close()

	var usage []repoargs.UsageByType
	for rows.Next() {
		var u repoargs.UsageByType
		if scanErr := rows.Scan(&u.MessageType, &u.Count); scanErr != nil {
			return nil, convertErr(scanErr, "scanning usage row")
		}
		usage = append(usage, u)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "iterating usage rows")
	}
	return usage, nil
}

func scanMessageLog(row interface{ Scan(...any) error }) (*domain.MessageLog, error) {
	var log domain.MessageLog
	err := row.Scan(
		&log.ID, &log.CreatedAt, &log.UpdatedAt, &log.UserID, &log.PhoneNumber,
		&log.ExternalID, &log.MessageType, &log.Status, &log.Error,
	)
	if err != nil {
		return nil, err
	}
	return &log, nil
}
