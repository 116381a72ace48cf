package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"github.com/viant/durable"
)

func (c *cli) eventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Short:   "Consume emulator events journaled with --events-url",
		Example: `  durable events --url file:///tmp/durable/events --follow`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			location, _ := cmd.Flags().GetString("url")
			if location == "" {
				location = c.config.Emulator.EventsURL
			}
			if location == "" {
				return errors.New("--url is required")
			}
			follow, _ := cmd.Flags().GetBool("follow")
			topic, _ := cmd.Flags().GetString("topic")
			journal, err := durable.NewEventJournal(ctx, location)
			if err != nil {
				return err
			}
			for {
				if !follow {
					pending, err := journal.Pending(ctx)
					if err != nil || pending == 0 {
						return err
					}
				}
				message, err := journal.Consume(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				event := message.T()
				if topic == "" || event.Topic == topic {
					if err = printJSON(cmd.OutOrStdout(), event); err != nil {
						_ = message.Nack(err)
						return err
					}
				}
				if err = message.Ack(); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().String("url", "", "event journal URL, defaults to the emulator events URL")
	cmd.Flags().String("topic", "", "only print this topic, e.g. callback.created")
	cmd.Flags().Bool("follow", false, "wait for new events")
	return cmd
}
