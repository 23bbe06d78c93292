package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	editClosed bool
	addAbove   int
	addBelow   int
)

// fatal prints the error and exits; mutating commands share it.
func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var setCmd = &cobra.Command{
	Use:   "set <row> <field> <value>",
	Short: "Edit one field of a record",
	Long: `Edit one field of a record, addressed by its row number from ls.
Field is a CSV column name, e.g. CUSTOMER, "DATE DUE", QTY. Editing
STATUS applies the partition rules: picked up / cancelled close the
record.`,
	Args: cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		id, err := resolveID(sess, targetPartition(editClosed), args[0])
		if err != nil {
			fatal(err)
		}
		if err := sess.SetField(id, args[1], args[2]); err != nil {
			fatal(err)
		}
		fmt.Println(sess.Status())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <row> <status>",
	Short: "Change a record's status",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		id, err := resolveID(sess, targetPartition(editClosed), args[0])
		if err != nil {
			fatal(err)
		}
		if err := sess.SetStatus(id, args[1]); err != nil {
			fatal(err)
		}
		fmt.Println(sess.Status())
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Insert a blank record",
	Long: `Insert a blank record due today. By default it is appended to the
open works; --above/--below insert relative to an existing row.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		p := targetPartition(editClosed)
		switch {
		case cmd.Flags().Changed("above"):
			id, err := resolveID(sess, p, strconv.Itoa(addAbove))
			if err != nil {
				fatal(err)
			}
			if _, err := sess.InsertAbove(id); err != nil {
				fatal(err)
			}
		case cmd.Flags().Changed("below"):
			id, err := resolveID(sess, p, strconv.Itoa(addBelow))
			if err != nil {
				fatal(err)
			}
			if _, err := sess.InsertBelow(id); err != nil {
				fatal(err)
			}
		default:
			if _, err := sess.InsertBlank(p); err != nil {
				fatal(err)
			}
		}
		fmt.Println(sess.Status())
	},
}

var copyCmd = &cobra.Command{
	Use:   "copy <row>",
	Short: "Duplicate a record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		id, err := resolveID(sess, targetPartition(editClosed), args[0])
		if err != nil {
			fatal(err)
		}
		if _, err := sess.Copy(id); err != nil {
			fatal(err)
		}
		fmt.Println(sess.Status())
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <row>",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		id, err := resolveID(sess, targetPartition(editClosed), args[0])
		if err != nil {
			fatal(err)
		}
		if err := sess.Delete(id); err != nil {
			fatal(err)
		}
		fmt.Println(sess.Status())
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv <row> <to>",
	Short: "Move a record to a new row within its partition",
	Long: `Move a record to a new row. Date dividers are recomputed after the
move, so a move only sticks within records sharing the same due date.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		_, sess, err := openSession()
		if err != nil {
			fatal(err)
		}
		defer sess.Close()

		p := targetPartition(editClosed)
		id, err := resolveID(sess, p, args[0])
		if err != nil {
			fatal(err)
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			fatal(fmt.Errorf("destination row must be a number: %q", args[1]))
		}
		if err := sess.Move(id, to); err != nil {
			fatal(err)
		}
		fmt.Println(sess.Status())
	},
}

func init() {
	for _, cmd := range []*cobra.Command{setCmd, statusCmd, addCmd, copyCmd, rmCmd, mvCmd} {
		cmd.Flags().BoolVar(&editClosed, "closed", false, "operate on the closed works")
		rootCmd.AddCommand(cmd)
	}
	addCmd.Flags().IntVar(&addAbove, "above", 0, "insert above this row")
	addCmd.Flags().IntVar(&addBelow, "below", 0, "insert below this row")
}
