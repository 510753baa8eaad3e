package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/qtype/internal/config"
	"github.com/xkilldash9x/qtype/internal/observability"
	"github.com/xkilldash9x/qtype/internal/server"
)

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the WebSocket control server for remote typing sessions",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg := config.Default()
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config with flag overrides: %w", err)
			}

			srv := server.New(cfg, logger)
			logger.Info("Starting control server", zap.String("addr", cfg.Server.ListenAddr))
			if err := srv.Run(ctx); err != nil {
				return fmt.Errorf("control server failed: %w", err)
			}
			return nil
		},
	}

	serveCmd.Flags().String("listen", "127.0.0.1:8787", "Address for the control server to listen on")
	return serveCmd
}
