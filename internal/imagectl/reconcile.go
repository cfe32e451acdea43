package imagectl

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconcileCmd(options *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Remove blobs that no image record references",
		Long: `Compares the blob store with the image records. Unreferenced files older
than reconcile.gracePeriod are removed; records whose file is missing are
reported but kept.`,
		Args: cobra.NoArgs,
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

			report, err := service.Reconcile(cmd.Context(), dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, name := range report.OrphanedBlobs {
				fmt.Fprintf(out, "%s %s\n", verb, name)
			}
			for _, id := range report.MissingBlobs {
				fmt.Fprintf(out, "record %s has no file\n", id)
			}
			fmt.Fprintf(out, "%d orphaned, %d removed, %d within grace period, %d records without file\n",
				len(report.OrphanedBlobs), len(report.Removed), report.Skipped, len(report.MissingBlobs))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would be removed")
	return cmd
}
