package web

import (
	"net/http"
	"time"
)

// SessionCookie carries the signed session token.
const SessionCookie = "getitdone_session"

const cookieMaxAge = 30 * 24 * time.Hour

// TokenStore holds the session token of one client.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}

// cookieTokens reads the token from the request cookie and writes changes back as
// Set-Cookie headers on the response.
type cookieTokens struct {
	w      http.ResponseWriter
	value  string
	secure bool
}

func newCookieTokens(w http.ResponseWriter, r *http.Request, secure bool) *cookieTokens {
	t := &cookieTokens{w: w, secure: secure}
	if c, err := r.Cookie(SessionCookie); err == nil {
		t.value = c.Value
	}
	return t
}

func (t *cookieTokens) Token() (string, error) { return t.value, nil }

func (t *cookieTokens) SetToken(token string) error {
	t.value = token
	c := &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	} else {
		c.MaxAge = int(cookieMaxAge / time.Second)
	}
	http.SetCookie(t.w, c)
	return nil
}
