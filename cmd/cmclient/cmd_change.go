package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cmintegration/cmclient/pkg/client"
	"github.com/spf13/cobra"
)

// ── is-change-in-development ────────────────────────────────────────────────

func newIsChangeInDevelopmentCmd(a *app) *cobra.Command {
	var changeID string

	cmd := &cobra.Command{
		Use:   "is-change-in-development -c <changeId>",
		Short: "Print whether a change is in development status",
		Long: `Prints "true" when the change is in development status and "false"
otherwise. Only SOLMAN backends manage change documents.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService(cmd)
			if err != nil {
				return err
			}
			dev, err := svc.IsChangeInDevelopment(cmd.Context(), changeID)
			if err != nil {
				return fmt.Errorf("get change %q: %w", changeID, err)
			}
			return printResult(cmd.OutOrStdout(), a.v.GetString("format"),
				client.Change{ChangeID: changeID, IsInDevelopment: dev},
				printLine(strconv.FormatBool(dev)))
		}),
	}
	cmd.Flags().StringVarP(&changeID, "change-id", "c", "", "Change ID (required)")
	_ = cmd.MarkFlagRequired("change-id")
	return cmd
}

// ── get-change-transports ───────────────────────────────────────────────────

func newGetChangeTransportsCmd(a *app) *cobra.Command {
	var (
		changeID       string
		modifiableOnly bool
	)

	cmd := &cobra.Command{
		Use:   "get-change-transports -c <changeId>",
		Short: "List the transports of a change",
		Long: `Prints the transport IDs of a change, one per line, in server order.
With --format json or yaml the full transport records are printed.`,
		Args: cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			svc, err := a.newService(cmd)
			if err != nil {
				return err
			}
			transports, err := svc.ChangeTransports(cmd.Context(), changeID, modifiableOnly)
			if err != nil {
				return fmt.Errorf("get transports of change %q: %w", changeID, err)
			}
			return printResult(cmd.OutOrStdout(), a.v.GetString("format"), transports, func(w io.Writer) error {
				for _, t := range transports {
					if _, err := fmt.Fprintln(w, t.TransportID); err != nil {
						return err
					}
				}
				return nil
			})
		}),
	}
	cmd.Flags().StringVarP(&changeID, "change-id", "c", "", "Change ID (required)")
	cmd.Flags().BoolVarP(&modifiableOnly, "modifiable-only", "m", false, "Only list modifiable transports")
	_ = cmd.MarkFlagRequired("change-id")
	return cmd
}
