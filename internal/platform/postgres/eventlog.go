package postgres

import (
	"context"

	"github.com/niw5924/smart-feeder-remote-api/pkg/feeder"
)

// Append writes one row to the append-only mqtt_logs table and returns the
// stored record. The id and receivedAt come back from the same INSERT, so a
// successful return guarantees the row is durable before any notification is
// attempted.
func (s *Store) Append(ctx context.Context, deviceID, topic string, payload *string) (*feeder.LogRecord, error) {
	rec := &feeder.LogRecord{
		DeviceID: deviceID,
		Topic:    topic,
		Payload:  payload,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO mqtt_logs (device_id, topic, payload)
		VALUES ($1, $2, $3)
		RETURNING id, received_at`,
		deviceID, topic, payload,
	).Scan(&rec.ID, &rec.ReceivedAt)
	if err != nil {
		return nil, &feeder.PersistenceError{Err: err}
	}

	return rec, nil
}

// Fetch resolves a device id to the distinct enabled push tokens of all its
// owners. An empty slice means no one to notify; it is not an error.
func (s *Store) Fetch(ctx context.Context, deviceID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT pt.token
		FROM push_tokens pt
		JOIN user_devices ud ON ud.user_pk = pt.user_pk
		JOIN devices d ON d.id = ud.device_pk
		WHERE d.device_id = $1
		  AND pt.enabled`,
		deviceID,
	)
	if err != nil {
		return nil, &feeder.QueryError{Err: err}
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, &feeder.QueryError{Err: err}
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, &feeder.QueryError{Err: err}
	}

	return tokens, nil
}

// LogsForUser returns the caller's visible slice of the event log: every row
// for a device the user owns, newest first. Backing query for the HTTP log
// retrieval endpoint.
func (s *Store) LogsForUser(ctx context.Context, userPK int64) ([]*feeder.LogRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ml.id, ml.received_at, ml.device_id, ml.topic, ml.payload
		FROM mqtt_logs ml
		JOIN devices d ON d.device_id = ml.device_id
		JOIN user_devices ud ON ud.device_pk = d.id
		WHERE ud.user_pk = $1
		ORDER BY ml.received_at DESC`,
		userPK,
	)
	if err != nil {
		return nil, &feeder.QueryError{Err: err}
	}
	defer rows.Close()

	logs := make([]*feeder.LogRecord, 0)
	for rows.Next() {
		var rec feeder.LogRecord
		if err := rows.Scan(&rec.ID, &rec.ReceivedAt, &rec.DeviceID, &rec.Topic, &rec.Payload); err != nil {
			return nil, &feeder.QueryError{Err: err}
		}
		logs = append(logs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &feeder.QueryError{Err: err}
	}

	return logs, nil
}
