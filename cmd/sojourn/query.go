package main

import (
	"fmt"
	"io"
	"time"

	"github.com/hylla/sojourn/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// newQueryCmd manages the saved-query store.
func newQueryCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Manage saved queries",
	}
	cmd.AddCommand(
		newQueryListCmd(flags),
		newQuerySaveCmd(flags),
		newQueryRemoveCmd(flags),
	)
	return cmd
}

func newQueryListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			queries, err := rt.service.ListQueries(cmd.Context())
			if err != nil {
				return err
			}
			renderQueryTable(cmd.OutOrStdout(), queries)
			return nil
		},
	}
}

func newQuerySaveCmd(flags *rootFlags) *cobra.Command {
	var description string
	var update bool
	cmd := &cobra.Command{
		Use:   "save NAME JQL",
		Short: "Save a named query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			name, jql := args[0], args[1]
			if update {
				_, err = rt.service.UpdateQuery(cmd.Context(), name, jql, description)
			} else {
				_, err = rt.service.SaveQuery(cmd.Context(), name, jql, description)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %q\n", name)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description of the query")
	cmd.Flags().BoolVar(&update, "update", false, "update an existing query")
	return cmd
}

func newQueryRemoveCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a saved query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(flags)
			if err != nil {
				return err
			}
			defer rt.Close()
			if err := rt.service.DeleteQuery(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}

// renderQueryTable prints saved queries as an aligned terminal table.
func renderQueryTable(w io.Writer, queries []domain.SavedQuery) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "JQL", "Description", "Updated"})
	for _, q := range queries {
		table.Append([]string{q.Name, q.JQL, q.Description, q.UpdatedAt.Format(time.RFC3339)})
	}
	table.Render()
}
