package imagectl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newUsersCmd(options *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect registered accounts",
	}
	cmd.AddCommand(newUsersListCmd(options))
	return cmd
}

func newUsersListCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			service, err := options.openImageService()
			if err != nil {
				return err
			}
			defer func() {
				if cerr := service.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			users, err := service.Database().GetUsers()
			if err != nil {
				return fmt.Errorf("failed to list users: %w", err)
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tUSERNAME\tEMAIL\tCREATED")
			for _, user := range users {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", user.ID, user.Username, user.Email, user.CreatedAt.Format(time.RFC3339))
			}
			return writer.Flush()
		},
	}
}
