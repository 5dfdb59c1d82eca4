package main

import (
	"fmt"

	"github.com/cmintegration/cmclient/internal/backend"
	"github.com/cmintegration/cmclient/pkg/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ── get-transport-<field> ───────────────────────────────────────────────────

func newTransportFieldCmd(a *app, use, short string, field backend.Field) *cobra.Command {
	var changeID, transportID string

	cmd := &cobra.Command{
		Use:   use + " [-c <changeId>] -t <transportId>",
		Short: short,
		Long: short + `.

SOLMAN backends look the transport up through its change, so -c is
required. ABAP backends address transports directly and reject -c.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService(cmd)
			if err != nil {
				return err
			}
			value, err := svc.TransportField(cmd.Context(), changeID, transportID, field)
			if err != nil {
				return fmt.Errorf("get %s of transport %q: %w", field, transportID, err)
			}
			out := map[string]string{"transport_id": transportID, string(field): value}
			return printResult(cmd.OutOrStdout(), a.v.GetString("format"), out, printLine(value))
		}),
	}
	cmd.Flags().StringVarP(&changeID, "change-id", "c", "", "Change ID (SOLMAN only)")
	cmd.Flags().StringVarP(&transportID, "transport-id", "t", "", "Transport ID (required)")
	_ = cmd.MarkFlagRequired("transport-id")
	return cmd
}

// ── create-transport ────────────────────────────────────────────────────────

func newCreateTransportCmd(a *app) *cobra.Command {
	var changeID, description, owner string

	cmd := &cobra.Command{
		Use:   "create-transport -c <changeId> [--description <d>] [--owner <o>]",
		Short: "Create a transport for a change and print its ID",
		Long: `Creates a development transport under the change. When --description
or --owner is given, the transport is created with those values;
otherwise the backend defaults apply.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClient(cmd)
			if err != nil {
				return err
			}

			advanced := cmd.Flags().Changed("description") || cmd.Flags().Changed("owner")
			a.logger.Debug("creating transport",
				zap.String("change_id", changeID),
				zap.Bool("advanced", advanced),
			)

			var t *client.Transport
			if advanced {
				t, err = c.CreateTransportAdvanced(cmd.Context(), changeID, description, owner)
			} else {
				t, err = c.CreateTransport(cmd.Context(), changeID)
			}
			if err != nil {
				return fmt.Errorf("create transport for change %q: %w", changeID, err)
			}
			a.logger.Info("transport created", zap.String("transport_id", t.TransportID))
			return printResult(cmd.OutOrStdout(), a.v.GetString("format"), t, printLine(t.TransportID))
		}),
	}
	cmd.Flags().StringVarP(&changeID, "change-id", "c", "", "Change ID (required)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Transport description")
	cmd.Flags().StringVarP(&owner, "owner", "o", "", "Transport owner")
	_ = cmd.MarkFlagRequired("change-id")
	return cmd
}

// ── release-transport ───────────────────────────────────────────────────────

func newReleaseTransportCmd(a *app) *cobra.Command {
	var changeID, transportID string

	cmd := &cobra.Command{
		Use:   "release-transport -c <changeId> -t <transportId>",
		Short: "Release a transport of a change",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			c, err := a.newClient(cmd)
			if err != nil {
				return err
			}
			if err := c.ReleaseTransport(cmd.Context(), changeID, transportID); err != nil {
				return fmt.Errorf("release transport %q of change %q: %w", transportID, changeID, err)
			}
			a.logger.Info("transport released",
				zap.String("change_id", changeID),
				zap.String("transport_id", transportID),
			)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&changeID, "change-id", "c", "", "Change ID (required)")
	cmd.Flags().StringVarP(&transportID, "transport-id", "t", "", "Transport ID (required)")
	_ = cmd.MarkFlagRequired("change-id")
	_ = cmd.MarkFlagRequired("transport-id")
	return cmd
}
