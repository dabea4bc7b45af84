package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lifeboat-sh/lifeboat/internal/media"
	"github.com/lifeboat-sh/lifeboat/internal/stats"
)

func mediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "List attached removable volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			devices, err := media.NewLsblkProvider().List(ctx)
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Println("no removable volumes attached")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DEVICE\tLABEL\tSIZE\tFS\tMOUNTPOINT")
			for _, d := range devices {
				label := d.Label
				if label == "" {
					label = "-"
				}
				mount := d.Mountpoint
				if mount == "" {
					mount = "(not mounted)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.Node, label, stats.FormatBytes(d.SizeBytes), d.Filesystem, mount)
			}
			return tw.Flush()
		},
	}
}
