package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ── upload-file-to-transport ────────────────────────────────────────────────

func newUploadFileCmd(a *app) *cobra.Command {
	var transportID, applicationID string

	cmd := &cobra.Command{
		Use:   "upload-file-to-transport -t <transportId> -a <applicationId> <file>",
		Short: "Upload a file into a transport",
		Long: `Uploads the file into the transport under its base name. The
application ID tells the backend how to deploy the file, e.g. HCP for an
MTA archive.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			path := args[0]
			if err := c.UploadFile(cmd.Context(), transportID, path, applicationID); err != nil {
				return fmt.Errorf("upload %s to transport %q: %w", path, transportID, err)
			}
			a.logger.Info("file uploaded",
				zap.String("transport_id", transportID),
				zap.String("application_id", applicationID),
				zap.String("file", path),
			)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&transportID, "transport-id", "t", "", "Transport ID (required)")
	cmd.Flags().StringVarP(&applicationID, "application-id", "a", "", "Application ID (required)")
	_ = cmd.MarkFlagRequired("transport-id")
	_ = cmd.MarkFlagRequired("application-id")
	return cmd
}
