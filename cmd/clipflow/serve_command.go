package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/amankumarsingh77/clipflow/internal/server"
	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			d, err := ctx.connect(runCtx, true)
			if err != nil {
				return err
			}
			defer d.Close()
			s := server.NewServer(ctx.config, d.db, d.redis, d.s3Client, d.presignClient, ctx.logger)
			return s.Run(runCtx)
		},
	}
}
