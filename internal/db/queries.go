package db

import (
	"context"

	"github.com/prompttester/api/internal/models"
)

func (db *DB) LogRequest(ctx context.Context, entry *models.RequestLog) error {
	query := `
        INSERT INTO request_logs (user_id, email, model, status_code, response_time_ms)
        VALUES ($1, $2, $3, $4, $5)
    `

	_, err := db.Pool.Exec(ctx, query,
		entry.UserID,
		entry.Email,
		entry.Model,
		entry.StatusCode,
		entry.ResponseTimeMs,
	)

	return err
}

func (db *DB) RecentRequests(ctx context.Context, userID string, limit int) ([]models.RequestLog, error) {
	query := `
        SELECT id, user_id, email, model, status_code, response_time_ms, timestamp
        FROM request_logs
        WHERE user_id = $1
        ORDER BY timestamp DESC
        LIMIT $2
    `

	rows, err := db.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RequestLog
	for rows.Next() {
		var entry models.RequestLog
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Email,
			&entry.Model,
			&entry.StatusCode,
			&entry.ResponseTimeMs,
			&entry.Timestamp,
		); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
