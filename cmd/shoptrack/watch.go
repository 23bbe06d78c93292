package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/isaacbax/workshoptracker/internal/logging"
	"github.com/isaacbax/workshoptracker/internal/session"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a live session that follows external file changes",
	Long: `Run a live session for the branch: the CSV files are watched for
changes made by other machines and the in-memory state reloads
automatically (debounced, and deferred while an edit is active).
Runs until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, user, branch, err := setup()
		if err != nil {
			fatal(err)
		}

		logger := logging.New("[watch] ", cfg.LogFile)

		sess, err := session.New(session.Config{
			BaseFolder: cfg.BaseFolder,
			Branch:     branch,
			User:       user,
			Watch:      true,
			Debounce:   cfg.Debounce,
			Logger:     logger,
		})
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		fmt.Println(sess.Status())
		if !sess.Watching() {
			fmt.Println("Live refresh unavailable; reloading on demand only.")
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		last := sess.Status()
		for {
			select {
			case <-stop:
				fmt.Println("Stopping")
				return
			case <-ticker.C:
				if st := sess.Status(); st != last {
					last = st
					fmt.Println(st)
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
