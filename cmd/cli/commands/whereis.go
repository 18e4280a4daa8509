package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/whereabouts-app/whereabouts/internal/publish"
)

func whereisCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "whereis",
		Short: "Show where your contacts are",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _, err := loadIdentity()
			if err != nil {
				return err
			}
			c, _, err := authedAPI()
			if err != nil {
				return err
			}
			ctx, cancel := cmdCtx()
			defer cancel()

			stop := startSpinner("Fetching...")
			res, err := publish.NewReader(c, id).Read(ctx)
			stop()
			if err != nil {
				return err
			}
			if asJSON {
				printJSON(res.Views)
				return nil
			}
			if len(res.Views) == 0 && len(res.Failed) == 0 {
				fmt.Println("No shares yet.")
				return nil
			}
			for _, v := range res.Views {
				fmt.Println(formatView(v))
			}
			for _, f := range res.Failed {
				fmt.Printf("%s share from %s unreadable: %v\n", color.RedString("✗"), f.From, f.Err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}
