package commands

import (
	"fmt"
	"os"

	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/spf13/cobra"
)

// VocabularyCommands returns the vocabulary maintenance commands
func VocabularyCommands(userService services.UserServiceInterface, vocabularyService services.VocabularyServiceInterface, logger *observability.Logger) *cobra.Command {
	vocabCmd := &cobra.Command{
		Use:   "vocab",
		Short: "Vocabulary maintenance commands",
	}
	vocabCmd.AddCommand(vocabImportCmd(userService, vocabularyService, logger))
	return vocabCmd
}

func vocabImportCmd(userService services.UserServiceInterface, vocabularyService services.VocabularyServiceInterface, logger *observability.Logger) *cobra.Command {
	var (
		username string
		file     string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an xlsx vocabulary workbook into a user's word list",
		Long: `Import an xlsx vocabulary workbook. The first sheet must have a header row
naming at least the telugu and english columns; rows that cannot be parsed
are reported and skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			user, err := lookupUser(ctx, userService, username)
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to open %s", file)
			}
			defer func() { _ = f.Close() }()

			entries, rowErrors, err := services.ParseVocabularySheet(f)
			if err != nil {
				return err
			}
			result, err := vocabularyService.ImportWords(ctx, user.ID, entries)
			if err != nil {
				logger.Error(ctx, "Vocabulary import failed", err, map[string]interface{}{"user_id": user.ID, "file": file})
				return contextutils.WrapError(err, "vocabulary import failed")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d rows: %d created, %d updated, %d skipped\n",
				result.Processed, result.Created, result.Updated, result.Skipped)
			for _, msg := range append(rowErrors, result.Errors...) {
				fmt.Fprintf(out, "  %s\n", msg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "user", "", "Owner of the imported words")
	cmd.Flags().StringVar(&file, "file", "", "Path to the xlsx workbook")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
