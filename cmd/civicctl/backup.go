package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"promise-tracker/storage"
)

func newBackupCmd(e *env) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Dump PostgreSQL to S3 and rotate old backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.cfg.BackupBucket == "" {
				return errors.New("BACKUP_S3_BUCKET is not set")
			}
			if !e.cfg.MediaConfigured() {
				return errors.New("S3_URL, S3_KEY and S3_SECRET are required for backups")
			}
			if !cmd.Flags().Changed("keep") {
				keep = e.cfg.KeepBackups
			}
			client, err := storage.NewS3Client(cmd.Context(), e.cfg)
			if err != nil {
				return err
			}
			b := storage.NewBackup(client, e.cfg.BackupBucket, keep, storage.PGDump(e.cfg), e.logger)
			key, err := b.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s\n", e.cfg.BackupBucket, key)
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 4, "Number of backups to keep")
	return cmd
}
