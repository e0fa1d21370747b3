package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"series-orderer/internal/series"
)

// NewHashCommand creates the hash command.
func NewHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <string>...",
		Short: "Print the family tie-break hash of each argument",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range args {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", series.Hash(s), s); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
