package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/salpanel/internal/fs"
)

var drivesCmd = &cobra.Command{
	Use:     "drives",
	Short:   "List mounted drives and their free space",
	Long:    "List the drives the panels fall back to. The system drive is marked with *.",
	Args:    cobra.NoArgs,
	GroupID: "inspection",
	RunE:    runDrives,
}

func runDrives(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	system, _ := fs.OSDrives{}.SystemDrive()
	for _, d := range fs.ListDrives() {
		mark := " "
		if fs.IsTheSamePath(d.Path, system) {
			mark = "*"
		}
		free := "-"
		if n, err := fs.FreeSpace(d.Path); err == nil {
			free = humanize.IBytes(n)
		}
		fmt.Fprintf(out, "%s %s %-10s %10s  %s\n", mark, dirColor.Sprintf("%-24s", d.Path), d.Type, free, d.Name)
	}
	return nil
}
