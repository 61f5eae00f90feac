package main

import (
	"github.com/spf13/cobra"

	"github.com/lexcodex/autoforge/framework"
)

func newScanCmd() *cobra.Command {
	var maxFiles int
	cmd := &cobra.Command{
		Use:   "scan [dir]",
		Short: "Scan a directory for committed secrets and key material",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := flagWorkspace
			if len(args) == 1 {
				dir = args[0]
			}
			ws, err := framework.NewWorkspace(dir)
			if err != nil {
				return err
			}
			guard := framework.NewSecurityGuard(ws, maxFiles)
			report, err := guard.Scan()
			if err != nil {
				return err
			}
			if len(report.Findings) == 0 {
				cmd.Printf("clean: %d files scanned\n", report.Scanned)
				return nil
			}
			for _, finding := range report.Findings {
				cmd.Printf("%s:%d %s %s\n", finding.File, finding.Line, finding.Kind, finding.Detail)
			}
			if report.Truncated {
				cmd.Println("note: scan truncated at the file cap")
			}
			cmd.Printf("%d findings in %d files\n", len(report.Findings), report.Scanned)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxFiles, "max-files", 0, "maximum files to scan (0 uses the default cap)")
	return cmd
}
