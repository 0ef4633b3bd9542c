package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"getitdone/internal/model"
)

// ChangeRow is a change log entry with its position in the log.
type ChangeRow struct {
	Seq   int64
	Event model.ChangeEvent
}

// LatestChangeSeq returns the highest sequence number in the change log (0 when empty).
func (db *DB) LatestChangeSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := db.sql.QueryRowContext(ctx, `SELECT MAX(seq) FROM changes`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq.Int64, nil
}

// ChangesSince returns up to limit change rows with seq > after, oldest first.
func (db *DB) ChangesSince(ctx context.Context, after int64, limit int) ([]ChangeRow, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.sql.QueryContext(ctx,
		`SELECT seq, collection, type, entity_id, payload_json, at_unixms
		 FROM changes WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		after, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChangeRow
	for rows.Next() {
		var (
			r       ChangeRow
			typ     string
			payload sql.NullString
			at      int64
		)
		if err := rows.Scan(&r.Seq, &r.Event.Collection, &typ, &r.Event.EntityID, &payload, &at); err != nil {
			return nil, err
		}
		r.Event.Type = model.ChangeType(typ)
		if payload.Valid && payload.String != "" {
			r.Event.Payload = json.RawMessage(payload.String)
		}
		r.Event.At = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneChanges deletes all but the newest keep change rows.
func (db *DB) PruneChanges(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := db.sql.ExecContext(ctx,
		`DELETE FROM changes WHERE seq <= (SELECT COALESCE(MAX(seq), 0) FROM changes) - ?`,
		keep,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
