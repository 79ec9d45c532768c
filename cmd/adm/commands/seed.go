package commands

import (
	"context"
	"fmt"

	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/spf13/cobra"
)

// CatalogSeeder loads badge and achievement definitions
type CatalogSeeder interface {
	SeedCatalog(ctx context.Context, seed services.CatalogSeed) (int, int, error)
}

// CurriculumSeeder loads courses and chapters
type CurriculumSeeder interface {
	SeedCurriculum(ctx context.Context, courses []services.CourseSeed) (int, error)
}

// SeedCommands returns the reference data loading commands
func SeedCommands(catalog CatalogSeeder, curriculum CurriculumSeeder, logger *observability.Logger) *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load reference data from YAML files",
		Long: `Load reference data from YAML files. Seeding is idempotent: existing
rows are matched by code (badges, achievements) or title (courses, chapters).

Available commands:
  catalog     - Upsert badges and achievements
  curriculum  - Upsert courses, chapters and prerequisites`,
	}
	seedCmd.AddCommand(seedCatalogCmd(catalog, logger))
	seedCmd.AddCommand(seedCurriculumCmd(curriculum, logger))
	return seedCmd
}

func seedCatalogCmd(catalog CatalogSeeder, logger *observability.Logger) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Upsert badges and achievements",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			seed, err := services.LoadCatalogSeed(file)
			if err != nil {
				return err
			}
			badges, achievements, err := catalog.SeedCatalog(ctx, *seed)
			if err != nil {
				logger.Error(ctx, "Catalog seed failed", err, map[string]interface{}{"file": file})
				return contextutils.WrapError(err, "catalog seed failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d badges and %d achievements from %s\n", badges, achievements, file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seeds/catalog.yaml", "Catalog YAML file")
	return cmd
}

func seedCurriculumCmd(curriculum CurriculumSeeder, logger *observability.Logger) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "curriculum",
		Short: "Upsert courses, chapters and prerequisites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			seed, err := services.LoadCurriculumSeed(file)
			if err != nil {
				return err
			}
			chapters, err := curriculum.SeedCurriculum(ctx, seed.Courses)
			if err != nil {
				logger.Error(ctx, "Curriculum seed failed", err, map[string]interface{}{"file": file})
				return contextutils.WrapError(err, "curriculum seed failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d courses and %d chapters from %s\n", len(seed.Courses), chapters, file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "seeds/curriculum.yaml", "Curriculum YAML file")
	return cmd
}
