package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List months that have entries, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepo()
		if err != nil {
			return err
		}
		defer repo.Close()

		months, err := ledger.NewService(repo, nil).ListMonths(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(months) == 0 {
			fmt.Fprintln(out, "no entries")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "MONTH\tDEBIT\tCREDIT\tBALANCE\t")
		for _, m := range months {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
				m.Month,
				core.FormatAmount(m.TotalDebit),
				core.FormatAmount(m.TotalCredit),
				core.FormatAmount(core.Balance(m.TotalDebit, m.TotalCredit)))
		}
		return tw.Flush()
	},
}
