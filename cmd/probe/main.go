// Command probe exercises the AI gateway from a terminal without the HTTP
// server. It reads the same environment as the server.
package main

import (
	"encoding/json"
	"os"

	"GemChat/pkg/config"
	"GemChat/pkg/logger"
	"GemChat/pkg/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "probe",
	Short: "Poke the configured AI provider",
}

func main() {
	cfg, err := config.Load()
	cobra.CheckErr(err)

	zl, err := logger.New(cfg.LogMode)
	cobra.CheckErr(err)
	defer zl.Sync() //nolint:errcheck

	gateway, err := newGateway(cfg, zl)
	cobra.CheckErr(err)

	rootCmd.AddCommand(
		newTextCmd(gateway, cfg),
		newImageCmd(gateway),
		newHealthCmd(gateway),
	)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newGateway(cfg *config.Config, zl *zap.Logger) (*services.Gateway, error) {
	provider, err := services.NewProvider(cfg, zl)
	if err != nil {
		return nil, err
	}
	return services.NewGateway(provider, zl,
		services.WithImageSource(services.ParseImageSource(cfg.ImageSource)),
	), nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	cobra.CheckErr(enc.Encode(v))
}
