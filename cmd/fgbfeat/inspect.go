package main

import (
	"fmt"

	"github.com/spf13/cobra"

	feature "github.com/tingold/orb-feature"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Print the layer schema of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, closeFn, err := openDataset(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		out := cmd.OutOrStdout()
		if r, ok := ds.(*feature.Reader); ok {
			h := r.Header()
			fmt.Fprintf(out, "name: %s\ngeometry: %s\nfeatures: %d\nindex: %t\n",
				h.Name, h.GeometryType, h.FeaturesCount, h.HasIndex)
			if h.CRS != nil {
				fmt.Fprintf(out, "crs: EPSG:%d %s\n", h.CRS.Code, h.CRS.Name)
			}
		}
		for i := 0; i < ds.LayerCount(); i++ {
			l, err := ds.Layer(feature.LayerByIndex(i))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "layer %d: %s\n", i, l.Name())
			for _, c := range l.Columns() {
				fmt.Fprintf(out, "  %-24s %-14s nullable=%t\n", c.Name, c.Kind, c.Nullable)
			}
		}
		return nil
	},
}
