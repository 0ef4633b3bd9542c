package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"getitdone/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultChannel is the Pub/Sub channel carrying task changes.
const DefaultChannel = "todos_changes"

// Redis carries change events between processes over Redis Pub/Sub.
type Redis struct {
	Client  *redis.Client
	Channel string
	Hub     *Hub
	Logger  logrus.FieldLogger

	reconnectDelay time.Duration
}

// NewRedis parses a redis:// URL (or a bare host:port) and returns a transport for channel.
func NewRedis(url, channel string, hub *Hub, logger logrus.FieldLogger) (*Redis, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("redis: missing url")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		if strings.Contains(url, "://") {
			return nil, err
		}
		opts = &redis.Options{Addr: url}
	}
	if strings.TrimSpace(channel) == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Redis{
		Client:         redis.NewClient(opts),
		Channel:        channel,
		Hub:            hub,
		Logger:         logger,
		reconnectDelay: time.Second,
	}, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.Client.Close()
}

func (r *Redis) Publish(ctx context.Context, ev model.ChangeEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.Client.Publish(ctx, r.Channel, b).Err()
}

// Run subscribes to the channel and rebroadcasts events on the hub until ctx is done.
// A closed subscription is re-established after a short delay.
func (r *Redis) Run(ctx context.Context) {
	for {
		sub := r.Client.Subscribe(ctx, r.Channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return
			}
			r.Logger.WithError(err).Error("redis subscribe failed, retrying")
			if !r.sleep(ctx) {
				return
			}
			continue
		}
		r.consume(ctx, sub.Channel())
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		r.Logger.Error("pubsub channel closed, reconnecting")
		if !r.sleep(ctx) {
			return
		}
	}
}

func (r *Redis) consume(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev model.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.Logger.WithError(err).Error("unable to parse change event")
				continue
			}
			if ev.Collection == "" {
				ev.Collection = model.TasksCollection
			}
			r.Hub.Broadcast(ev)
		}
	}
}

func (r *Redis) sleep(ctx context.Context) bool {
	t := time.NewTimer(r.reconnectDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
