/*
Copyright 2025 Payrail Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/payrail/payrail/internal/apierror"
	"github.com/payrail/payrail/model"
)

// insertOutboxMessage stages a message inside the caller's transaction so the
// event only exists if the state change it announces committed.
func insertOutboxMessage(ctx context.Context, tx *sql.Tx, message *model.OutboxMessage) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payrail.outbox_messages(message_id,event_type,payload,created_at) VALUES ($1,$2,$3,$4)`,
		message.MessageID, message.EventType, message.Payload, message.CreatedAt,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to stage outbox message", err)
	}
	return nil
}

// GetUnprocessedOutboxMessages retrieves the oldest unprocessed messages, up
// to limit, in creation order. Messages with a recorded error come back too;
// an error does not retire a message, only processed_at does.
func (d Datasource) GetUnprocessedOutboxMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, message_id, event_type, payload, created_at, processed_at, error
		FROM payrail.outbox_messages
		WHERE processed_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve outbox messages", err)
	}
	defer rows.Close()

	messages := []*model.OutboxMessage{}
	for rows.Next() {
		message := &model.OutboxMessage{}
		var processedAt sql.NullTime
		var publishErr sql.NullString
		err = rows.Scan(&message.ID, &message.MessageID, &message.EventType, &message.Payload, &message.CreatedAt, &processedAt, &publishErr)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan outbox message", err)
		}
		if processedAt.Valid {
			message.ProcessedAt = &processedAt.Time
		}
		message.Error = publishErr.String
		messages = append(messages, message)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Error occurred while iterating outbox messages", err)
	}

	return messages, nil
}

// CommitOutboxResults applies one relay pass's markers in a single
// transaction: published messages get processed_at, failed ones record the
// last publish error and stay retryable. Marking happens after the publishes,
// so a crash or failed commit republishes the pass; the broker and consumers
// dedup on the message ID.
func (d Datasource) CommitOutboxResults(ctx context.Context, results []model.OutboxResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, result := range results {
		if result.Error == "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE payrail.outbox_messages
				SET processed_at = $1, error = NULL
				WHERE message_id = $2
			`, time.Now(), result.MessageID)
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE payrail.outbox_messages
				SET error = $1
				WHERE message_id = $2
			`, result.Error, result.MessageID)
		}
		if err != nil {
			return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record outbox result", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit outbox results", err)
	}
	return nil
}
