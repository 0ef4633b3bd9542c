package web

import (
	"context"
	"net/http"
	"time"

	"getitdone/internal/todo"

	"github.com/starfederation/datastar-go/datastar"
)

// handleEvents streams list patches: one fetch on open, then one fetch per change
// notification, until the browser goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	svc := s.service(w, r)

	ctx, cancel := opContext(r)
	u, err := svc.CurrentUser(ctx)
	cancel()

	sse := datastar.NewSSE(w, r)
	if err != nil || u == nil {
		_ = sse.ExecuteScript(`window.location.assign("/auth")`)
		return
	}
	logger := s.logger.WithField("user", u.ID)

	c := todo.NewCollection()
	refresh := func() {
		ctx, cancel := context.WithTimeout(sse.Context(), opTimeout)
		defer cancel()
		c.BeginFetch()
		tasks, err := svc.Fetch(ctx)
		if n := c.ApplyFetch(tasks, err); n != nil {
			s.patchToast(sse, *n)
		}
		// A failed fetch keeps the previous rows.
		s.patchList(sse, c)
	}

	sub, err := svc.Watch(sse.Context())
	if err != nil {
		// Without notifications the list still loads once.
		logger.WithError(err).Warn("live updates unavailable")
		refresh()
		return
	}
	defer sub.Close()

	refresh()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case _, ok := <-sub.Events():
			if !ok {
				return
			}
			refresh()
		}
	}
}
