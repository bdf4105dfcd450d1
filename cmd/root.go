package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luma/cmdmgr/cmd/gen"
	"github.com/luma/cmdmgr/internal/env"
	"github.com/luma/cmdmgr/internal/meta"
)

var RootCmd = &cobra.Command{
	Use:   "cmdmgr",
	Short: "Command Manager message parser",
	Long: `Command Manager message parser

Parses the line oriented Command Manager protocol used to drive wind tunnel
measurement subsystems. Messages look like <opcode><payload># where the opcode
is exactly ten characters, e.g.

	RUN_NO____123#
	D_USR_FLD_Parameter1,0.004947,Parameter2,0.203044,#
	HISTORY___#

Configuration is read from CMDMGR_* environment variables and .env.local.`,
	Version:       meta.GetInfo().String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.AddCommand(DemoCmd, ConsoleCmd, ParseCmd, ServeCmd, SendCmd, gen.RootCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*env.Config, *zap.Logger, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	return conf, log, nil
}
