package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promise-tracker/config"
	"promise-tracker/storage"
)

// env hält die gemeinsam genutzten Abhängigkeiten aller Unterbefehle.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Backend
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "civicctl",
		Short:         "Administration for the promise tracker evidence service",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := zap.NewProduction()
			if err != nil {
				return err
			}
			e.cfg, e.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
	}
	root.AddCommand(
		newReconcileCmd(e),
		newSetStatusCmd(e),
		newUserCmd(e),
		newPromiseCmd(e),
		newBackupCmd(e),
	)
	return root
}

// openStore öffnet den Store erst bei Bedarf; backup braucht keinen.
func (e *env) openStore() (storage.Backend, error) {
	if e.store != nil {
		return e.store, nil
	}
	store, err := storage.Open(e.cfg)
	if err != nil {
		return nil, err
	}
	e.store = store
	return store, nil
}
