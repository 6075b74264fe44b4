package sendevent

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
)

const pollInterval = 250 * time.Millisecond

// Run checks the server, submits cfg.Count events with cfg.Workers
// concurrent senders and, if cfg.Wait is set, waits for the first event's
// outcome. Responses are written to w.
func Run(ctx context.Context, cfg *Config, w io.Writer) (Stats, error) {
	start := time.Now()
	log := logger.Named("send-event")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	if err := client.Healthy(ctx); err != nil {
		return Stats{}, fmt.Errorf("service health check failed: %w", err)
	}

	count := max(cfg.Count, 1)
	events := make([]model.Event, count)
	for i := range events {
		events[i] = BuildEvent(cfg)
	}

	var (
		mu    sync.Mutex
		stats = Stats{EventIDs: make([]string, 0, count)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for _, ev := range events {
		g.Go(func() error {
			res, body, err := client.Submit(gctx, ev, cfg.Sync)
			mu.Lock()
			defer mu.Unlock()
			stats.Submitted++
			stats.EventIDs = append(stats.EventIDs, ev.ID)
			switch res {
			case ResultAccepted:
				stats.Accepted++
			case ResultDuplicate:
				stats.Duplicate++
			default:
				stats.Failed++
				log.Warn(gctx, "submission failed", logger.String("event_id", ev.ID), logger.Error(err))
			}
			if count == 1 {
				fmt.Fprintf(w, "%s\n", body)
			}
			return nil
		})
	}
	_ = g.Wait()

	if cfg.Wait > 0 && !cfg.Sync && stats.Accepted > 0 {
		out, err := waitForOutcome(ctx, client, events[0].ID, cfg.Wait)
		if err != nil {
			log.Warn(ctx, "no outcome", logger.String("event_id", events[0].ID), logger.Error(err))
		} else {
			fmt.Fprintf(w, "outcome %s: notified=%t ticket_updated=%t failed_step=%q\n",
				out.EventID, out.Notified, out.TicketUpdated, out.FailedStep)
		}
	}

	stats.Duration = time.Since(start)
	log.Info(ctx, "submission completed",
		logger.Int("submitted", stats.Submitted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d submissions failed", stats.Failed, stats.Submitted)
	}
	return stats, nil
}

func waitForOutcome(ctx context.Context, c *Client, eventID string, wait time.Duration) (model.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		out, found, err := c.Outcome(ctx, eventID)
		if err != nil {
			return model.Outcome{}, err
		}
		if found {
			return out, nil
		}
		select {
		case <-ctx.Done():
			return model.Outcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
