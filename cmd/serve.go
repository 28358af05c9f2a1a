package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the review pipeline over a JSON HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := bootstrap()

		p, err := newPipeline(context.Background(), config, logger)
		if err != nil {
			logger.Fatal("building review pipeline", zap.Error(err))
		}

		address := viper.GetString("server.address")
		if config.Server != nil && config.Server.Address != "" {
			address = config.Server.Address
		}

		var timeout = viper.GetDuration("ai.timeout")
		if config.AI != nil {
			timeout = config.AI.Timeout
		}
		if config.Fetcher != nil {
			timeout += config.Fetcher.Timeout
		}

		srv := server.New(server.Config{
			Address:       address,
			ReviewTimeout: timeout,
			Debug:         viper.GetBool("debug"),
		}, p, newHistoryStore(config), logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("starting the http server", zap.String("address", address), zap.String("version", version))

		if err := srv.Run(ctx); err != nil {
			logger.Fatal("http server", zap.Error(err))
		}

		logger.Info("http server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("address", "a", "", "address to listen on (default from server.address)")

	viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
}
