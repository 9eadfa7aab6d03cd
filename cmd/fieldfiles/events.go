package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"

	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/spf13/cobra"
)

func newEventsCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the domain event stream",
	}

	var group string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Print events as JSON lines until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cli.cfg.KafkaBrokers) == 0 {
				return errors.New("KAFKA_BROKERS is not configured")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer := events.NewConsumer(cli.cfg.KafkaBrokers, group, cli.cfg.KafkaTopic, cli.logger)
			defer consumer.Close()

			enc := json.NewEncoder(cmd.OutOrStdout())
			consumer.RegisterHandler(func(_ context.Context, event events.Event) error {
				return enc.Encode(event)
			})
			return consumer.Run(ctx)
		},
	}
	tail.Flags().StringVar(&group, "group", "fieldfiles-tail", "consumer group id")
	cmd.AddCommand(tail)
	return cmd
}
