package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const auditLogColumns = `id, user_id, action, details, created_at`

type CreateAuditLogParams struct {
	UserID  pgtype.UUID
	Action  string
	Details pgtype.Text
}

const createAuditLog = `
INSERT INTO audit_logs (user_id, action, details)
VALUES ($1, $2, $3)
RETURNING ` + auditLogColumns

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AuditLog, error) {
	var l AuditLog
	err := q.db.QueryRow(ctx, createAuditLog, arg.UserID, arg.Action, arg.Details).
		Scan(&l.ID, &l.UserID, &l.Action, &l.Details, &l.CreatedAt)
	return l, err
}

type ListAuditLogsParams struct {
	Limit  int32
	Offset int32
}

const listAuditLogs = `SELECT ` + auditLogColumns + ` FROM audit_logs ORDER BY created_at DESC LIMIT $1 OFFSET $2`

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	logs := []AuditLog{}
	for rows.Next() {
		var l AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
