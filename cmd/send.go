package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/cmdmgr/client"
)

var (
	// Address of the cmdmgr server to send to
	sendAddr string

	dialTimeout time.Duration
)

func init() {
	flags := SendCmd.Flags()

	flags.StringVar(&sendAddr, "addr", "127.0.0.1:7363", "The address of the cmdmgr server")
	flags.DurationVar(&dialTimeout, "timeout", 5*time.Second, "How long to wait for the connection")
}

var SendCmd = &cobra.Command{
	Use:   "send <message>...",
	Short: "Send messages to a running cmdmgr server and print its output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer signalStop()

		_, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()

		conn, err := client.Dial(dialCtx, sendAddr, log)
		if err != nil {
			return err
		}

		if err := conn.Send(args...); err != nil {
			conn.Close()
			return err
		}

		done := make(chan error, 1)
		go func() { done <- conn.Close() }()

		for line := range conn.Output() {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}

		if err := <-done; err != nil {
			log.Warn("Connection did not close cleanly", zap.Error(err))
		}

		return nil
	},
}
