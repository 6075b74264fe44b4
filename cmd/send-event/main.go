package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/commentsense/internal/sendevent"
	"github.com/okian/commentsense/pkg/logger"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	cfg := sendevent.NewConfig()
	var verbose bool

	fs := pflag.NewFlagSet("send-event", pflag.ExitOnError)
	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "Base URL of the webhook server")
	fs.StringVarP(&cfg.Body, "body", "b", cfg.Body, "Comment body")
	fs.StringVarP(&cfg.TicketID, "ticket", "t", cfg.TicketID, "Ticket id")
	fs.StringVar(&cfg.Priority, "priority", cfg.Priority, "Ticket priority")
	fs.StringVar(&cfg.Type, "type", cfg.Type, "Ticket event type")
	fs.BoolVar(&cfg.Public, "public", cfg.Public, "Send the comment as public")
	fs.BoolVar(&cfg.Sync, "sync", cfg.Sync, "Use /events/sync and print the handler response")
	fs.IntVarP(&cfg.Count, "count", "n", cfg.Count, "Number of events to send")
	fs.IntVarP(&cfg.Workers, "workers", "w", cfg.Workers, "Concurrent senders")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	fs.DurationVar(&cfg.Wait, "wait", cfg.Wait, "Poll this long for the first event's outcome")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = fs.Parse(os.Args[1:])

	if err := logger.Init(logger.WithFormat("text")); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	if _, err := sendevent.Run(ctx, cfg, os.Stdout); err != nil {
		logger.Get().Error(ctx, "send-event failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
