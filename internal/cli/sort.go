package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"series-orderer/internal/series"
)

// NewSortCommand creates the sort command.
func NewSortCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <file>",
		Short: "Print the records of a YAML or JSON file in display order",
		Long: `Read a list of series records from a YAML or JSON file and print them
in display order. Use "-" to read from stdin.

Records repeating an id and records that cannot be ordered are reported on
stderr and left out of the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSort(rootOpts, args[0], cmd)
		},
	}
}

func runSort(opts *RootOptions, path string, cmd *cobra.Command) error {
	records, err := readRecords(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	merged, report := series.Merge(nil, records)
	ordered, rejected := series.Sort(merged)

	errw := cmd.ErrOrStderr()
	for _, c := range report.Conflicts {
		fmt.Fprintf(errw, "conflict: %v\n", c)
	}
	for _, r := range append(report.Rejected, rejected...) {
		fmt.Fprintf(errw, "rejected: %v\n", r)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		data, err := json.MarshalIndent(ordered, "", "  ")
		if err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s\n", data)
		return err
	}
	return writeText(out, ordered)
}

// readRecords decodes a record list from path, or from stdin when path is "-".
// JSON input is accepted as YAML.
func readRecords(path string, stdin io.Reader) ([]series.Record, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var records []series.Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records from %s: %w", path, err)
	}
	return records, nil
}

// writeText prints one tab-separated line per record:
// position, role, id, path, and the parent path or "-".
func writeText(w io.Writer, ordered []series.Record) error {
	for i, r := range ordered {
		parent := "-"
		if r.Role == series.RoleDerived {
			parent = r.DerivedFromPath
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, r.Role, r.ID, r.Path, parent); err != nil {
			return err
		}
	}
	return nil
}
