package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"getitdone/internal/model"

	"github.com/google/uuid"
)

// Session is a server-side record of a signed-in client. Tokens reference it by id so
// that sign-out can revoke them before they expire.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (s Session) Active() bool { return s.RevokedAt == nil }

func normalizeUserName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("user name is empty")
	}
	return name, nil
}

// EnsureUser returns the user with the given name, creating it on first use.
func (db *DB) EnsureUser(ctx context.Context, name string) (model.User, error) {
	name, err := normalizeUserName(name)
	if err != nil {
		return model.User{}, err
	}
	if u, ok, err := db.UserByName(ctx, name); err != nil || ok {
		return u, err
	}

	u := model.User{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO users(id, name, created_at_unixms) VALUES(?, ?, ?) ON CONFLICT(name) DO NOTHING`,
		u.ID, u.Name, u.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return model.User{}, err
	}
	// Another process may have won the insert race.
	got, ok, err := db.UserByName(ctx, name)
	if err != nil {
		return model.User{}, err
	}
	if !ok {
		return model.User{}, errors.New("user insert did not persist")
	}
	return got, nil
}

func (db *DB) UserByName(ctx context.Context, name string) (model.User, bool, error) {
	return db.scanUser(db.sql.QueryRowContext(ctx,
		`SELECT id, name, created_at_unixms FROM users WHERE name = ?`, strings.TrimSpace(name)))
}

func (db *DB) UserByID(ctx context.Context, id string) (model.User, bool, error) {
	return db.scanUser(db.sql.QueryRowContext(ctx,
		`SELECT id, name, created_at_unixms FROM users WHERE id = ?`, strings.TrimSpace(id)))
}

func (db *DB) scanUser(row *sql.Row) (model.User, bool, error) {
	var (
		u       model.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, false, nil
		}
		return model.User{}, false, err
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	return u, true, nil
}

func (db *DB) CreateSession(ctx context.Context, userID string) (Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Session{}, errors.New("session: missing user")
	}
	s := Session{ID: uuid.NewString(), UserID: userID, CreatedAt: time.Now().UTC()}
	_, err := db.sql.ExecContext(ctx,
		`INSERT INTO sessions(id, user_id, created_at_unixms) VALUES(?, ?, ?)`,
		s.ID, s.UserID, s.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

func (db *DB) SessionByID(ctx context.Context, id string) (Session, bool, error) {
	var (
		s       Session
		created int64
		revoked sql.NullInt64
	)
	err := db.sql.QueryRowContext(ctx,
		`SELECT id, user_id, created_at_unixms, revoked_at_unixms FROM sessions WHERE id = ?`,
		strings.TrimSpace(id),
	).Scan(&s.ID, &s.UserID, &created, &revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, false, nil
		}
		return Session{}, false, err
	}
	s.CreatedAt = time.UnixMilli(created).UTC()
	if revoked.Valid {
		t := time.UnixMilli(revoked.Int64).UTC()
		s.RevokedAt = &t
	}
	return s, true, nil
}

// RevokeSession marks one session revoked. Revoking an already revoked or unknown session is a no-op.
func (db *DB) RevokeSession(ctx context.Context, id string) error {
	_, err := db.sql.ExecContext(ctx,
		`UPDATE sessions SET revoked_at_unixms = ? WHERE id = ? AND revoked_at_unixms IS NULL`,
		time.Now().UTC().UnixMilli(), strings.TrimSpace(id),
	)
	return err
}

// RevokeUserSessions revokes every active session of userID except exceptID (which may be empty).
func (db *DB) RevokeUserSessions(ctx context.Context, userID, exceptID string) (int64, error) {
	res, err := db.sql.ExecContext(ctx,
		`UPDATE sessions SET revoked_at_unixms = ?
		 WHERE user_id = ? AND id <> ? AND revoked_at_unixms IS NULL`,
		time.Now().UTC().UnixMilli(), strings.TrimSpace(userID), strings.TrimSpace(exceptID),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
