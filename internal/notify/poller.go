package notify

import (
	"context"
	"time"

	"getitdone/internal/store"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 750 * time.Millisecond
	defaultKeepChanges  = 1000
	pruneEvery          = 200
	pollBatch           = 500
)

// ChangeLog is the subset of the store the poller reads from.
type ChangeLog interface {
	LatestChangeSeq(ctx context.Context) (int64, error)
	ChangesSince(ctx context.Context, after int64, limit int) ([]store.ChangeRow, error)
	PruneChanges(ctx context.Context, keep int) (int64, error)
}

// LogPoller tails the sqlite change log and broadcasts new rows on a Hub. It lets
// several processes sharing one database see each other's writes.
type LogPoller struct {
	Log      ChangeLog
	Hub      *Hub
	Interval time.Duration
	Keep     int
	Logger   logrus.FieldLogger
}

// Run polls until ctx is done. Rows that exist before Run starts are not replayed.
func (p *LogPoller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	keep := p.Keep
	if keep <= 0 {
		keep = defaultKeepChanges
	}
	logger := p.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	seq, err := p.Log.LatestChangeSeq(ctx)
	if err != nil {
		return err
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		seq = p.drain(ctx, seq, logger)

		ticks++
		if ticks%pruneEvery == 0 {
			if n, err := p.Log.PruneChanges(ctx, keep); err != nil {
				logger.WithError(err).Warn("prune change log")
			} else if n > 0 {
				logger.WithField("rows", n).Debug("pruned change log")
			}
		}
	}
}

func (p *LogPoller) drain(ctx context.Context, seq int64, logger logrus.FieldLogger) int64 {
	for {
		rows, err := p.Log.ChangesSince(ctx, seq, pollBatch)
		if err != nil {
			if ctx.Err() == nil {
				logger.WithError(err).Warn("read change log")
			}
			return seq
		}
		for _, r := range rows {
			p.Hub.Broadcast(r.Event)
			seq = r.Seq
		}
		if len(rows) < pollBatch {
			return seq
		}
	}
}
