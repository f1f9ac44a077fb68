package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/medflow/idscan/internal/idscan/service"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract identity fields from a local document image",
	Long: `Runs the same pipeline as POST /api/id/upload on FILE: type check,
HEIC conversion, downscaling and one OCR request. The result is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		uploads, err := service.NewUploadServiceFromConfig(cfg, newLogger())
		if err != nil {
			return err
		}

		result, err := uploads.ProcessFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}
