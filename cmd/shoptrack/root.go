package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isaacbax/workshoptracker/internal/auth"
	"github.com/isaacbax/workshoptracker/internal/config"
	"github.com/isaacbax/workshoptracker/internal/logging"
	"github.com/isaacbax/workshoptracker/internal/record"
	"github.com/isaacbax/workshoptracker/internal/session"
	"github.com/isaacbax/workshoptracker/internal/view"
)

var (
	flagConfig   string
	flagBase     string
	flagBranch   string
	flagUser     string
	flagPassword string
)

var rootCmd = &cobra.Command{
	Use:   "shoptrack",
	Short: "Workshop work-order tracker over shared CSV files",
	Long: `shoptrack tracks workshop work orders shared between machines via
flat CSV files in a common folder. Each branch has an open and a closed
file; records move between them automatically as their status changes.

Who you are comes from users.csv in the base folder: non-root users are
pinned to their branch, root may pick any with --branch.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ./shoptrack.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagBase, "base", "", "base folder holding the CSV files")
	rootCmd.PersistentFlags().StringVar(&flagBranch, "branch", "", "branch to operate on")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "username")
	rootCmd.PersistentFlags().StringVarP(&flagPassword, "password", "p", "", "password")
}

// setup loads configuration, applies flag overrides and resolves the
// acting user and branch against the user directory.
func setup() (config.Config, string, string, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return config.Config{}, "", "", err
	}
	if flagBase != "" {
		cfg.BaseFolder = flagBase
	}
	if flagUser != "" {
		cfg.User = flagUser
	}

	branch := cfg.Branch
	if flagBranch != "" {
		branch = flagBranch
	}

	dir, err := auth.Load(cfg.UsersCSVPath())
	if err != nil {
		return config.Config{}, "", "", err
	}
	if dir.Empty() {
		// No user directory in this folder yet; trust the flags.
		user := cfg.User
		if user == "" {
			user = "root"
		}
		return cfg, user, branch, nil
	}

	u, branch, err := dir.Login(cfg.User, flagPassword, branch)
	if err != nil {
		return config.Config{}, "", "", err
	}
	return cfg, u.Username, branch, nil
}

// openSession builds a one-shot session (no live refresh).
func openSession() (config.Config, *session.Session, error) {
	cfg, user, branch, err := setup()
	if err != nil {
		return config.Config{}, nil, err
	}
	sess, err := session.New(session.Config{
		BaseFolder: cfg.BaseFolder,
		Branch:     branch,
		User:       user,
		Logger:     logging.New("[session] ", cfg.LogFile),
	})
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, sess, nil
}

// resolveID maps a partition-relative row index (as printed by ls) to a
// record ID.
func resolveID(sess *session.Session, p session.Partition, arg string) (string, error) {
	index, err := strconv.Atoi(arg)
	if err != nil {
		return "", fmt.Errorf("row must be a number: %q", arg)
	}
	records := sess.Records(p)
	if index < 0 || index >= len(records) {
		return "", fmt.Errorf("no row %d in %s (%d rows)", index, p, len(records))
	}
	return records[index].ID, nil
}

func targetPartition(closed bool) session.Partition {
	if closed {
		return session.Closed
	}
	return session.Open
}

// printEntries renders an arranged view as a table. Dividers print as
// date banner lines; records carry the partition-relative row number that
// set/status/rm/mv accept, stable even when the view is filtered.
func printEntries(sess *session.Session, p session.Partition, entries []view.Entry) {
	rows := make(map[string]int)
	for i, o := range sess.Records(p) {
		rows[o.ID] = i
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ROW\tRETAIL\tCUSTOMER\tSERIAL\tDAY\tDATE DUE\tSTATUS\tQTY\tWHAT IS IT\tPRIORITY\tLAST USER")

	for _, e := range entries {
		switch e := e.(type) {
		case view.DividerEntry:
			fmt.Fprintf(w, "\t---- %s ----\t\t\t\t\t\t\t\t\t\n", e.Caption)
		case view.RecordEntry:
			o := e.Order
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
				rows[o.ID], o.Retail, o.Customer, o.Serial, o.DayDue,
				record.FormatDate(o.DateDue), o.Status, o.Qty,
				o.WhatIsIt, o.Priority, o.LastUser)
		}
	}
}
