package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	feature "github.com/tingold/orb-feature"
)

var (
	importName  string
	importDesc  string
	importEPSG  int
	importNoIdx bool
)

var importCmd = &cobra.Command{
	Use:   "import IN OUT.fgb",
	Short: "Convert a GeoJSON or BSON feature collection to FlatGeobuf",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, closeFn, err := openDataset(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		layer, err := ds.Layer(feature.LayerByIndex(0))
		if err != nil {
			return err
		}

		opts := &feature.WriteOptions{
			Name:         importName,
			Description:  importDesc,
			IncludeIndex: !importNoIdx,
		}
		switch importEPSG {
		case 0:
		case 4326:
			opts.CRS = feature.WGS84()
		default:
			opts.CRS = &feature.CRS{Code: importEPSG}
		}

		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := feature.WriteLayer(out, layer, opts); err != nil {
			_ = out.Close()
			return err
		}
		logger.Info("wrote flatgeobuf", zap.String("path", args[1]), zap.Int("columns", len(layer.Columns())))
		return out.Close()
	},
}

func init() {
	importCmd.Flags().StringVar(&importName, "name", "", "layer name (defaults to the input file name)")
	importCmd.Flags().StringVar(&importDesc, "description", "", "layer description")
	importCmd.Flags().IntVar(&importEPSG, "epsg", 4326, "EPSG code of the coordinates, 0 for none")
	importCmd.Flags().BoolVar(&importNoIdx, "no-index", false, "omit the spatial index")
}
