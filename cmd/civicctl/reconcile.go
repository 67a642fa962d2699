package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"promise-tracker/services"
)

func newReconcileCmd(e *env) *cobra.Command {
	var repair bool
	var workers int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare stored trust scores with the vote ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := e.openStore()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("workers") {
				workers = e.cfg.ReconcileWorkers
			}
			report, err := services.NewReconciler(store, e.logger, workers, repair).Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Write the recomputed trust score back")
	cmd.Flags().IntVar(&workers, "workers", 5, "Parallel recounts")
	return cmd
}
