package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/isaacbax/workshoptracker/internal/auth"
	"github.com/isaacbax/workshoptracker/internal/config"
)

var (
	lsClosed bool
	lsFilter string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the open (or closed) works for the branch",
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close()

		p := targetPartition(lsClosed)
		var entries = sess.FilterOpen(lsFilter)
		if lsClosed {
			entries = sess.FilterClosed(lsFilter)
		}

		printEntries(sess, p, entries)
		fmt.Println(sess.Status())
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Re-read the branch files and report what they hold",
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close()

		if err := sess.ReloadNow(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(sess.Status())
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "List the branches known to the user directory",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if flagBase != "" {
			cfg.BaseFolder = flagBase
		}

		dir, err := auth.Load(cfg.UsersCSVPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		for _, b := range dir.Branches() {
			fmt.Println(b)
		}
	},
}

func init() {
	lsCmd.Flags().BoolVar(&lsClosed, "closed", false, "list the closed works instead")
	lsCmd.Flags().StringVar(&lsFilter, "filter", "", "only show rows matching this text")
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(branchesCmd)
}
