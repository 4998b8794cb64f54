package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/banshee-data/tfgraph/internal/db"
	"github.com/banshee-data/tfgraph/internal/tf"
)

const defaultDBPath = "tfgraph.db"

func newLinksCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage persisted static links",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "SQLite database path")

	open := func() (*db.DB, *db.StaticLinkStore, error) {
		database, err := db.Open(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return database, db.NewStaticLinkStore(database), nil
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List static links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, store, err := open()
			if err != nil {
				return err
			}
			defer database.Close()

			links, err := store.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPARENT\tCHILD\tTRANSLATION\tROTATION")
			for _, l := range links {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%v\n", l.ID, l.Parent, l.Child, l.Translation, l.Rotation)
			}
			return tw.Flush()
		},
	}

	var (
		parent, child string
		translation   []float64
		rotation      []float64
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add or replace the static link for a child frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(translation) != 3 {
				return fmt.Errorf("--translation needs 3 values, got %d", len(translation))
			}
			if len(rotation) != 4 {
				return fmt.Errorf("--rotation needs 4 values (x,y,z,w), got %d", len(rotation))
			}
			database, store, err := open()
			if err != nil {
				return err
			}
			defer database.Close()

			row, err := store.Put(tf.Link{
				Parent: parent,
				Child:  child,
				Pose: tf.NewPose(translation[0], translation[1], translation[2],
					rotation[0], rotation[1], rotation[2], rotation[3]),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", row.ID, row.Parent, row.Child)
			return err
		},
	}
	add.Flags().StringVar(&parent, "parent", "", "parent frame")
	add.Flags().StringVar(&child, "child", "", "child frame")
	add.Flags().Float64SliceVar(&translation, "translation", []float64{0, 0, 0}, "translation x,y,z in metres")
	add.Flags().Float64SliceVar(&rotation, "rotation", []float64{0, 0, 0, 1}, "rotation quaternion x,y,z,w")
	_ = add.MarkFlagRequired("parent")
	_ = add.MarkFlagRequired("child")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a static link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, store, err := open()
			if err != nil {
				return err
			}
			defer database.Close()
			return store.Delete(args[0])
		},
	}

	cmd.AddCommand(list, add, rm)
	return cmd
}
