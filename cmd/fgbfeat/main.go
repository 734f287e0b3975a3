// Command fgbfeat inspects, decodes and converts FlatGeobuf and GeoJSON
// layers.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	feature "github.com/tingold/orb-feature"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "fgbfeat",
	Short: "Decode typed records from FlatGeobuf and GeoJSON layers",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(inspectCmd, decodeCmd, importCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDataset opens a FlatGeobuf file, or a GeoJSON (.geojson, .json)
// or BSON (.bson) feature collection as a one-layer dataset.
func openDataset(path string) (feature.Dataset, func(), error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".fgb" {
		r, err := feature.NewReader(path)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	}

	fc, err := readCollection(path)
	if err != nil {
		return nil, nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	l, err := feature.NewMemoryLayer(name, fc)
	if err != nil {
		return nil, nil, err
	}
	return feature.NewMemoryDataset(l), func() {}, nil
}

func readCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".bson") {
		fc := geojson.NewFeatureCollection()
		if err := fc.UnmarshalBSON(data); err != nil {
			return nil, err
		}
		return fc, nil
	}
	return geojson.UnmarshalFeatureCollection(data)
}
