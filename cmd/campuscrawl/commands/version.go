package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/campuscrawl/internal/output"
	"github.com/jmylchreest/campuscrawl/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("format")
			if name == "" || name == "text" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Full())
				return err
			}

			format, err := output.ParseFormat(name)
			if err != nil {
				return err
			}
			w, err := output.NewWriter(cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if err := w.Write(version.Get()); err != nil {
				return err
			}
			return w.Close()
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, yaml")
	return cmd
}
