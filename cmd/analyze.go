package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vidgrab/engine"
	"vidgrab/services"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var asTable bool

	cmd := &cobra.Command{
		Use:   "analyze <url|query>",
		Short: "Print normalized metadata and selectable formats",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(os.Stderr)
			if err != nil {
				return err
			}

			media, err := services.NewMediaService(cfg, engine.NewYTDLP(cfg.Engine.Binary), nil, logger)
			if err != nil {
				return err
			}

			resp, err := media.Analyze(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !resp.Success {
				if !asTable {
					_ = writeJSON(cmd.OutOrStdout(), resp)
				}
				return errors.New(resp.Error)
			}

			if asTable {
				renderFormats(cmd.OutOrStdout(), resp.MediaInfo)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().BoolVar(&asTable, "table", false, "Render formats as a table instead of JSON")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
