/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prodvault/apiserver/config"
	"github.com/prodvault/apiserver/internal/mq"
	"github.com/prodvault/apiserver/internal/services"
	"github.com/spf13/cobra"
)

// eventsCmd represents the events command.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect product lifecycle events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print product events as they arrive",
	Long: `Subscribes to the product event channel on the configured message
queue backend and prints each event to stdout until interrupted. Usage:

	MQ_BACKEND=rabbitmq apiserver events tail
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		bus, err := mq.FromConfig(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if bus == nil {
			return errors.New("no message queue backend configured, set MQ_BACKEND")
		}
		defer func() {
			_ = bus.Close()
		}()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = bus.Subscribe(ctx, services.EventChannel, func(ctx context.Context, msg mq.Message) error {
			fmt.Printf("%s %s\n", msg.ID, msg.Data)
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
