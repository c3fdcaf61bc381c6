package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/bootstrap"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/gallery"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/profile"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/repository"
)

type importSummary struct {
	Imported int  `json:"imported"`
	Updated  int  `json:"updated,omitempty"`
	Replaced bool `json:"replaced,omitempty"`
}

func newImportGalleryCommand(ctx *commandContext) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import-gallery <file.csv>",
		Short: "Load a reference feature CSV into the reference_faces table",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open reference table: %w", err)
			}
			defer func() { _ = f.Close() }()

			entries, err := gallery.ReadCSV(f, gallery.CSVOptions{
				KeyColumn: cfg.GalleryKeyColumn,
				Dimension: cfg.EmbeddingDim,
			})
			if err != nil {
				return err
			}
			// Same checks as a gallery load, before anything is written
			if _, err := gallery.New(entries, cfg.EmbeddingDim); err != nil {
				return err
			}

			pool, err := bootstrap.OpenPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := repository.NewReferenceRepository(pool)
			var n int
			if replace {
				n, err = repo.ReplaceAll(cmd.Context(), entries)
			} else {
				n, err = repo.Upsert(cmd.Context(), entries)
			}
			if err != nil {
				return err
			}

			ctx.logger.Info("reference gallery imported",
				slog.String("file", args[0]),
				slog.Int("entries", n),
				slog.Bool("replace", replace),
			)
			return writeJSON(cmd, importSummary{Imported: n, Replaced: replace})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Delete existing entries before importing")

	return cmd
}

func newImportMembersCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import-members <file.json>",
		Short: "Create or update member profiles from a JSON array, keyed by name",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dir, err := profile.LoadFile(args[0])
			if err != nil {
				return err
			}

			pool, err := bootstrap.OpenPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			// Members are keyed by name so a re-import refreshes rows in place
			repo := repository.NewMemberRepository(pool)
			var summary importSummary
			members := dir.Members()
			for i := range members {
				created, err := repo.Upsert(cmd.Context(), &members[i])
				if err != nil {
					return fmt.Errorf("member %d: %w", i+1, err)
				}
				if created {
					summary.Imported++
				} else {
					summary.Updated++
				}
			}

			ctx.logger.Info("members imported",
				slog.String("file", args[0]),
				slog.Int("created", summary.Imported),
				slog.Int("updated", summary.Updated),
			)
			return writeJSON(cmd, summary)
		},
	}
}
