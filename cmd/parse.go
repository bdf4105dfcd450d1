package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luma/cmdmgr/protocol"
)

var ParseCmd = &cobra.Command{
	Use:     "parse <message>...",
	Short:   "Parse messages given as arguments, in order, against one history",
	Example: `  cmdmgr parse 'RUN_NO____123#' 'POLAR_NO__2#' 'HISTORY___#'`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history := protocol.NewHistory()

		for _, msg := range args {
			if err := protocol.Parse(cmd.OutOrStdout(), history, msg); err != nil {
				return err
			}
		}

		return nil
	},
}
