package cli

import (
	"context"
	"errors"
	"strings"
	"sync"

	"getitdone/internal/backend/local"
	"getitdone/internal/notify"
	"getitdone/internal/session"
	"getitdone/internal/store"

	"github.com/sirupsen/logrus"
)

// runtime is everything a command needs to talk to the local backend.
type runtime struct {
	DB      *store.DB
	Hub     *notify.Hub
	Backend *local.Backend
	// Redis is set when change notifications go through Redis Pub/Sub.
	Redis *notify.Redis

	logger logrus.FieldLogger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// openRuntime opens the database and builds the local backend. Exactly one change
// transport is chosen: Redis when a URL is configured, the change-log poller otherwise.
func openRuntime(ctx context.Context, app *App, logger logrus.FieldLogger) (*runtime, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, err
	}
	st := store.Store{Dir: dir}
	db, err := st.Open(ctx)
	if err != nil {
		return nil, err
	}

	secret, err := session.LoadOrInitSecret(st.SecretKeyPath())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	keys, err := session.NewKeys(secret, session.DefaultTTL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rt := &runtime{DB: db, Hub: notify.NewHub(), logger: logger}

	redisURL := strings.TrimSpace(app.RedisURL)
	if redisURL == "" {
		if cfg, err := store.LoadConfig(); err == nil {
			redisURL = strings.TrimSpace(cfg.RedisURL)
		}
	}
	opts := local.Options{DB: db, Keys: keys, Hub: rt.Hub, Logger: logger}
	if redisURL != "" {
		r, err := notify.NewRedis(redisURL, app.Channel, rt.Hub, logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		rt.Redis = r
		opts.Publisher = r
	}

	be, err := local.New(opts)
	if err != nil {
		rt.closeStores()
		return nil, err
	}
	rt.Backend = be
	return rt, nil
}

// Start runs the change transport in the background until Close.
func (rt *runtime) Start(ctx context.Context) {
	ctx, rt.cancel = context.WithCancel(ctx)
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if rt.Redis != nil {
			rt.logger.WithField("channel", rt.Redis.Channel).Info("change notifications via redis")
			rt.Redis.Run(ctx)
			return
		}
		p := &notify.LogPoller{Log: rt.DB, Hub: rt.Hub, Logger: rt.logger}
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			rt.logger.WithError(err).Error("change log poller stopped")
		}
	}()
}

func (rt *runtime) Close() error {
	if rt.cancel != nil {
		rt.cancel()
	}
	rt.wg.Wait()
	return rt.closeStores()
}

func (rt *runtime) closeStores() error {
	var errs []error
	if rt.Redis != nil {
		errs = append(errs, rt.Redis.Close())
	}
	errs = append(errs, rt.DB.Close())
	return errors.Join(errs...)
}
