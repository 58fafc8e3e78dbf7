package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// accountCodeSegments is the number of dash-separated parts in an account code.
const accountCodeSegments = 6

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage program to account code mappings",
		Long: `Program mappings choose the debit and credit accounts for each program's
payments. Codes are written as six dash-separated segments:

  entity-org-funding-activity-subactivity-natural_class

Segments may be empty, e.g. 10-200--A1--4100.`,
	}

	cmd.AddCommand(mappingsListCmd())
	cmd.AddCommand(mappingsSetCmd())
	cmd.AddCommand(mappingsDeleteCmd())

	return cmd
}

func mappingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List program mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			mappings, err := store.GetProgramMappings(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(mappings) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No program mappings yet. Add one with 'books mappings set'."))
				return nil
			}

			rows := make([][]string, 0, len(mappings))
			for _, m := range mappings {
				rows = append(rows, []string{m.ProgramName, formatAccountCode(m.Debit), formatAccountCode(m.Credit)})
			}
			_, _ = fmt.Fprintln(out, cli.RenderTable([]string{"Program", "Debit", "Credit"}, rows))
			return nil
		},
	}
}

func mappingsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <program>",
		Short: "Create or replace a program mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			debitFlag, _ := cmd.Flags().GetString("debit")
			creditFlag, _ := cmd.Flags().GetString("credit")

			debit, err := parseAccountCode(debitFlag)
			if err != nil {
				return common.NewUserError("invalid --debit", err)
			}
			credit, err := parseAccountCode(creditFlag)
			if err != nil {
				return common.NewUserError("invalid --credit", err)
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			mapping := &model.ProgramMapping{ProgramName: args[0], Debit: debit, Credit: credit}
			if err := store.SaveProgramMapping(cmd.Context(), mapping); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Mapped %q: debit %s, credit %s",
				mapping.ProgramName, formatAccountCode(debit), formatAccountCode(credit))))
			return nil
		},
	}

	cmd.Flags().String("debit", "", "Debit account code")
	cmd.Flags().String("credit", "", "Credit account code")
	return cmd
}

func mappingsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <program>",
		Short: "Delete a program mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteProgramMapping(cmd.Context(), args[0]); err != nil {
				if errors.Is(err, common.ErrNotFound) {
					return common.NewUserError(fmt.Sprintf("no mapping for program %q", args[0]), err)
				}
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted mapping for %q", args[0])))
			return nil
		},
	}
}

func unmappedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unmapped",
		Short: "List pending programs without a mapping",
		Long: `List the programs of pending transactions that have no account mapping.

Their entries would be written with blank account codes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			programs, err := newEngine(store).FindUnmappedPrograms(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(programs) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatSuccess("Every pending program has a mapping"))
				return nil
			}

			_, _ = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("%d programs have no mapping:", len(programs))))
			for _, p := range programs {
				_, _ = fmt.Fprintf(out, "  - %s\n", p)
			}
			return nil
		},
	}
}

// parseAccountCode reads a dash-separated account code. An empty string is a
// blank code.
func parseAccountCode(s string) (model.AccountCode, error) {
	if strings.TrimSpace(s) == "" {
		return model.AccountCode{}, nil
	}

	parts := strings.Split(s, "-")
	if len(parts) != accountCodeSegments {
		return model.AccountCode{}, fmt.Errorf("%w: %q has %d segments, want %d",
			common.ErrInvalidConfig, s, len(parts), accountCodeSegments)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return model.AccountCode{
		Entity:       parts[0],
		Org:          parts[1],
		Funding:      parts[2],
		Activity:     parts[3],
		Subactivity:  parts[4],
		NaturalClass: parts[5],
	}, nil
}

func formatAccountCode(c model.AccountCode) string {
	if c.IsBlank() {
		return "(blank)"
	}
	return strings.Join(c.Segments(), "-")
}
