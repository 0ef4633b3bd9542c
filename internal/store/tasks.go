package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"getitdone/internal/model"
)

const taskColumns = `id, owner_id, task, is_complete, deadline_unixms, created_at_unixms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (model.Task, error) {
	var (
		t        model.Task
		complete int
		deadline sql.NullInt64
		created  int64
	)
	if err := r.Scan(&t.ID, &t.OwnerID, &t.Text, &complete, &deadline, &created); err != nil {
		return model.Task{}, err
	}
	t.Complete = complete != 0
	if deadline.Valid {
		d := time.UnixMilli(deadline.Int64).In(time.Local)
		t.Deadline = &d
	}
	t.CreatedAt = time.UnixMilli(created).UTC()
	return t, nil
}

// ListTasks returns ownerID's tasks, newest first.
func (db *DB) ListTasks(ctx context.Context, ownerID string) ([]model.Task, error) {
	rows, err := db.sql.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE owner_id = ? ORDER BY created_at_unixms DESC, rowid DESC`,
		strings.TrimSpace(ownerID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (db *DB) TaskByID(ctx context.Context, id string) (model.Task, bool, error) {
	t, err := scanTask(db.sql.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, strings.TrimSpace(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, false, nil
		}
		return model.Task{}, false, err
	}
	return t, true, nil
}

// InsertTask stores t and records an insert change in the same transaction.
func (db *DB) InsertTask(ctx context.Context, t model.Task) (model.ChangeEvent, error) {
	if strings.TrimSpace(t.ID) == "" || strings.TrimSpace(t.OwnerID) == "" {
		return model.ChangeEvent{}, errors.New("insert task: missing id or owner")
	}
	var deadline any
	if t.Deadline != nil {
		deadline = t.Deadline.UnixMilli()
	}

	var ev model.ChangeEvent
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks(`+taskColumns+`) VALUES(?, ?, ?, ?, ?, ?)`,
			t.ID, t.OwnerID, t.Text, boolToInt(t.Complete), deadline, t.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return err
		}
		ev, err = recordChange(ctx, tx, model.ChangeInsert, t.ID, t)
		return err
	})
	return ev, err
}

// SetTaskComplete updates the completion flag of a task owned by ownerID.
// It reports false (and records nothing) when no such row exists.
func (db *DB) SetTaskComplete(ctx context.Context, id, ownerID string, complete bool) (model.ChangeEvent, bool, error) {
	var (
		ev      model.ChangeEvent
		changed bool
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tasks SET is_complete = ? WHERE id = ? AND owner_id = ?`,
			boolToInt(complete), id, ownerID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
		if err != nil {
			return err
		}
		changed = true
		ev, err = recordChange(ctx, tx, model.ChangeUpdate, id, t)
		return err
	})
	return ev, changed, err
}

// DeleteTask removes a task owned by ownerID. It reports false when no such row exists.
func (db *DB) DeleteTask(ctx context.Context, id, ownerID string) (model.ChangeEvent, bool, error) {
	var (
		ev      model.ChangeEvent
		changed bool
	)
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return err
		}
		changed = true
		ev, err = recordChange(ctx, tx, model.ChangeDelete, id, map[string]string{"id": id})
		return err
	})
	return ev, changed, err
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func recordChange(ctx context.Context, tx *sql.Tx, typ model.ChangeType, entityID string, payload any) (model.ChangeEvent, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return model.ChangeEvent{}, err
	}
	ev := model.ChangeEvent{
		Collection: model.TasksCollection,
		Type:       typ,
		EntityID:   entityID,
		Payload:    b,
		At:         time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO changes(collection, type, entity_id, payload_json, at_unixms) VALUES(?, ?, ?, ?, ?)`,
		ev.Collection, string(ev.Type), ev.EntityID, string(b), ev.At.UnixMilli(),
	)
	if err != nil {
		return model.ChangeEvent{}, err
	}
	return ev, nil
}
