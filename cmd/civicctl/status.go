package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"promise-tracker/models"
	"promise-tracker/services"
)

func newSetStatusCmd(e *env) *cobra.Command {
	var actor string
	cmd := &cobra.Command{
		Use:   "set-status <evidence-id> <pending|verified|disputed>",
		Short: "Override the moderation status of an evidence item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid evidence id: %w", err)
			}
			store, err := e.openStore()
			if err != nil {
				return err
			}
			svc := services.NewEvidenceService(store, store, nil, nil, e.logger)
			ev, err := svc.UpdateStatus(cmd.Context(), id, models.EvidenceStatus(args[1]),
				services.Actor{UserID: actor, Role: models.RoleAdmin})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: status=%s trust_score=%d\n", ev.ID, ev.Status, ev.TrustScore)
			return nil
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "civicctl", "Recorded in the status history")
	return cmd
}
