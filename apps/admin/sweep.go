package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var errSweepLocked = errors.New("another sweep is already running")

func defaultSweepLock() string {
	return filepath.Join(os.TempDir(), "zonosign-sweep.lock")
}

func (cli *commandLine) newSweepCommand() *cobra.Command {
	var lockPath string
	var idle time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Close idle sessions once and abandon their lessons",
		RunE: func(cmd *cobra.Command, args []string) error {
			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return errors.Wrap(err, "acquiring sweep lock")
			}
			if !ok {
				return errSweepLocked
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					cli.logger.Warn("failed to release sweep lock", err)
				}
			}()

			if idle > 0 {
				cli.sessionSvc.SetIdleTimeout(idle)
			}
			if err = cli.sessionSvc.Restore(cmd.Context()); err != nil {
				return err
			}
			swept, err := cli.sessionSvc.SweepIdle(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed %d idle sessions\n", len(swept))
			return nil
		},
	}
	cmd.Flags().StringVar(&lockPath, "lock", defaultSweepLock(), "Lock file guarding concurrent sweeps")
	cmd.Flags().DurationVar(&idle, "idle", 0, "Idle timeout override (default from config)")
	return cmd
}
