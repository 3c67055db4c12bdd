package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aretw0/speeza/pkg/notes"
)

var (
	groupCascade      bool
	groupUncategorize bool
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage note groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		g, err := app.Library.CreateGroup(ctx, args[0])
		if err != nil {
			fatal("Failed to create group", err)
		}
		fmt.Printf("Group created: %s (%s)\n", g.Name, g.ID)
	},
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <group> <name>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		g := findGroup(ctx, app, args[0])
		renamed, err := app.Library.RenameGroup(ctx, g.ID, args[1])
		if err != nil {
			fatal("Failed to rename group", err)
		}
		fmt.Printf("Group renamed: %s -> %s\n", g.Name, renamed.Name)
	},
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <group>",
	Short: "Delete a group",
	Long: `Delete a group. A group that still has notes is only deleted with
--cascade (its notes are deleted too) or --uncategorize (its notes are kept
without a group).`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mode := notes.GroupDeleteIfEmpty
		switch {
		case groupCascade && groupUncategorize:
			fatal("Invalid flags", fmt.Errorf("--cascade and --uncategorize are exclusive"))
		case groupCascade:
			mode = notes.GroupDeleteCascade
		case groupUncategorize:
			mode = notes.GroupDeleteUncategorize
		}

		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		g := findGroup(ctx, app, args[0])
		res, err := app.Library.DeleteGroup(ctx, g.ID, mode)
		if err != nil {
			fatal("Failed to delete group", err)
		}

		fmt.Printf("Group deleted: %s", g.Name)
		switch {
		case res.DeletedNotes > 0:
			fmt.Printf(" (%d notes deleted)", res.DeletedNotes)
		case res.UncategorizedNotes > 0:
			fmt.Printf(" (%d notes uncategorized)", res.UncategorizedNotes)
		}
		fmt.Println()
	},
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups with their note counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		app := openApp(ctx, cmd)
		defer app.Close()

		groups, err := app.Library.Groups(ctx)
		if err != nil {
			fatal("Failed to list groups", err)
		}
		all, err := app.Library.Notes(ctx)
		if err != nil {
			fatal("Failed to list notes", err)
		}
		counts := notes.Counts(all)

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		for _, g := range notes.GroupsSortedByName(groups) {
			fmt.Fprintf(w, "%s\t%s\t%d\n", shortID(g.ID), g.Name, counts[g.ID])
		}
		fmt.Fprintf(w, "-\t(uncategorized)\t%d\n", notes.Count(all, notes.Uncategorized))
		w.Flush()
	},
}

func init() {
	groupDeleteCmd.Flags().BoolVar(&groupCascade, "cascade", false, "Delete the group's notes too")
	groupDeleteCmd.Flags().BoolVar(&groupUncategorize, "uncategorize", false, "Keep the group's notes without a group")

	groupCmd.AddCommand(groupAddCmd, groupRenameCmd, groupDeleteCmd, groupListCmd)
	rootCmd.AddCommand(groupCmd)
}
