/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taskhub/apiserver/config"
	"github.com/taskhub/apiserver/internal/events"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect task lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Subscribe to task event channels and print messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		backend, err := events.NewBackend(cmd.Context(), cfg.Events)
		if err != nil {
			return err
		}
		if backend == nil {
			return errors.New("EVENTS_BACKEND is not configured")
		}
		defer func() {
			_ = backend.Close()
		}()

		channels := args
		if len(channels) == 0 {
			channels = []string{
				events.TaskCreated,
				events.TaskUpdated,
				events.TaskStatusChanged,
				events.TaskDeleted,
			}
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		errCh := make(chan error, len(channels))
		for _, channel := range channels {
			go func(channel string) {
				errCh <- backend.Subscribe(ctx, channel, func(ctx context.Context, msg events.Message) error {
					fmt.Printf("[%s] %s\n", channel, msg.Data)
					return nil
				})
			}(channel)
		}

		return <-errCh
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
