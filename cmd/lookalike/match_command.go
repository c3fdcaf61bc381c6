package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/bootstrap"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/pipeline"
)

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "match <image> [image...]",
		Short: "Print the gallery entries most similar to the given photos",
		Long: "Embeds every photo, fuses the usable embeddings by element-wise median and prints the\n" +
			"top K gallery entries as a JSON array. Failures print {\"error\": ...} and exit non-zero.",
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if topK < 0 {
				return &usageError{err: fmt.Errorf("--top-k must be positive, got %d", topK)}
			}
			if topK > 0 {
				cfg.TopK = topK
			}

			result, err := runMatch(cmd.Context(), ctx, args)
			if err != nil {
				if jsonErr := writeJSON(cmd, newErrorOutput(err)); jsonErr != nil {
					return jsonErr
				}
				return &reportedError{err: err}
			}
			return writeJSON(cmd, result.Matches)
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of matches to print (default TOP_K)")

	return cmd
}

func runMatch(ctx context.Context, cmdCtx *commandContext, paths []string) (*domain.MatchResult, error) {
	cfg := cmdCtx.config
	logger := cmdCtx.logger

	if len(paths) > cfg.MaxProbeImages {
		return nil, domain.ErrTooManyImages.WithError(
			fmt.Errorf("got %d images, at most %d allowed", len(paths), cfg.MaxProbeImages))
	}

	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()

	return components.Pipeline.Run(ctx, readProbes(paths, logger))
}

// readProbes loads the probe files. An unreadable file counts as a failed
// probe, like an image without a face.
func readProbes(paths []string, logger *slog.Logger) []pipeline.Probe {
	probes := make([]pipeline.Probe, 0, len(paths))
	for _, path := range paths {
		image, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("probe skipped", slog.String("probe", path), slog.Any("error", err))
			continue
		}
		probes = append(probes, pipeline.Probe{Name: filepath.Base(path), Image: image})
	}
	return probes
}
