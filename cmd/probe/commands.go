package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	"GemChat/models"
	"GemChat/pkg/config"
	"GemChat/pkg/services"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// newTextCmd sends one prompt, optionally with a JSON history file of
// {"role","content"} turns.
func newTextCmd(g *services.Gateway, cfg *config.Config) *cobra.Command {
	var opts struct {
		HistoryFile string
	}

	cmd := &cobra.Command{
		Use:   "text <prompt>",
		Short: "Generate a text reply",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			history, err := readHistory(opts.HistoryFile)
			cobra.CheckErr(err)

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout())
			defer cancel()

			start := time.Now()
			text, err := g.GenerateText(ctx, strings.Join(args, " "), history)
			cobra.CheckErr(err)
			printJSON(map[string]any{
				"text":       text,
				"model":      g.Provider().Model(),
				"elapsed_ms": time.Since(start).Milliseconds(),
			})
		},
	}

	cmd.Flags().StringVarP(&opts.HistoryFile, "history-file", "f", "", "JSON file with prior turns")
	return cmd
}

func newImageCmd(g *services.Gateway) *cobra.Command {
	var opts struct {
		ChatID string
	}

	cmd := &cobra.Command{
		Use:   "image <prompt>",
		Short: "Generate an image reference and caption",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(g.GenerateImage(cmd.Context(), strings.Join(args, " "), opts.ChatID))
		},
	}

	cmd.Flags().StringVar(&opts.ChatID, "chat-id", "", "Chat the image belongs to")
	return cmd
}

func newHealthCmd(g *services.Gateway) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show provider configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(g.Health())
		},
	}
}

func readHistory(path string) ([]models.Turn, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read history file")
	}
	var turns []models.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, errors.Wrap(err, "decode history file")
	}
	for i := range turns {
		role, err := models.ParseRole(string(turns[i].Role))
		if err != nil {
			return nil, errors.Wrapf(err, "history turn %d", i)
		}
		turns[i].Role = role
	}
	return turns, nil
}
