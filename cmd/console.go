package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/luma/cmdmgr/driver"
	"github.com/luma/cmdmgr/protocol"
)

var (
	// Print Result JSON documents instead of raw output
	jsonOutput bool

	// Skip the interactive console after the demo
	noInteractive bool
)

func init() {
	ConsoleCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a JSON document per message instead of the raw output")

	DemoCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print a JSON document per message in the interactive console")
	DemoCmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Exit after the canned messages")
}

var DemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Parse the canned example messages, then read messages from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		history := protocol.NewHistory()

		if err := driver.RunDemo(cmd.OutOrStdout(), history); err != nil {
			return err
		}

		if noInteractive {
			return nil
		}

		return runConsole(cmd, history)
	},
}

var ConsoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Read messages from stdin until EXIT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole(cmd, protocol.NewHistory())
	},
}

func runConsole(cmd *cobra.Command, history *protocol.History) error {
	ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer signalStop()

	_, log, err := setup(ctx)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	console := &driver.Console{
		In:      cmd.InOrStdin(),
		Out:     cmd.OutOrStdout(),
		History: history,
		JSON:    jsonOutput,
		Log:     log,
	}

	return console.Run(ctx)
}
