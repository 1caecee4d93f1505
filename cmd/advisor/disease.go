package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

var diseaseCmd = &cobra.Command{
	Use:   "disease",
	Short: "Diagnose a plant disease from a leaf or plant photo",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("image")
		cropType, _ := cmd.Flags().GetString("crop-type")
		severity, _ := cmd.Flags().GetString("severity")

		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() > advisory.MaxImageBytes {
			return fmt.Errorf("image %s is larger than %d bytes", path, advisory.MaxImageBytes)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		res, err := advisor.DetectDisease(cmd.Context(), advisory.DiseaseRequest{
			Image:        data,
			MIMEType:     fileMIMEType(path, data),
			CropType:     cropType,
			SeverityHint: severity,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

func init() {
	rootCmd.AddCommand(diseaseCmd)

	diseaseCmd.Flags().String("image", "", "path to a JPEG, PNG or WebP photo")
	diseaseCmd.Flags().String("crop-type", "", "crop shown in the photo, if known")
	diseaseCmd.Flags().String("severity", "", "observed severity: mild, medium or severe")
	_ = diseaseCmd.MarkFlagRequired("image")
}

// fileMIMEType sniffs the content and falls back to the file extension.
func fileMIMEType(path string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(http.DetectContentType(data)); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(filepath.Ext(path))); err == nil {
		return mt
	}
	return ""
}
