package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	feature "github.com/tingold/orb-feature"
	"github.com/tingold/orb-feature/internal/fieldspec"
)

var (
	specPath   string
	bboxFlag   string
	formatFlag string
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE",
	Short: "Decode a layer through a YAML field spec and print GeoJSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := fieldspec.Load(specPath)
		if err != nil {
			return err
		}
		fc, err := decodeFile(args[0], spec, bboxFlag)
		if err != nil {
			return err
		}

		var data []byte
		switch formatFlag {
		case "json":
			data, err = json.Marshal(fc)
		case "bson":
			data, err = fc.MarshalBSON()
		default:
			return fmt.Errorf("unknown format %q", formatFlag)
		}
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&specPath, "spec", "s", "", "YAML field spec (required)")
	decodeCmd.Flags().StringVar(&bboxFlag, "bbox", "", "minx,miny,maxx,maxy filter (FlatGeobuf only)")
	decodeCmd.Flags().StringVar(&formatFlag, "format", "json", "output format: json or bson")
	_ = decodeCmd.MarkFlagRequired("spec")
}

func decodeFile(path string, spec *fieldspec.Spec, bbox string) (*geojson.FeatureCollection, error) {
	ds, closeFn, err := openDataset(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	layer, err := ds.Layer(spec.LayerRef())
	if err != nil {
		return nil, err
	}
	if bbox != "" {
		b, err := parseBound(bbox)
		if err != nil {
			return nil, err
		}
		r, ok := layer.(*feature.Reader)
		if !ok {
			return nil, fmt.Errorf("--bbox requires a FlatGeobuf file")
		}
		if layer, err = r.Search(b); err != nil {
			return nil, err
		}
	}

	rows, err := feature.FromLayer(layer, spec.Decoder(), &feature.DecodeOptions{Logger: logger})
	if err != nil {
		return nil, err
	}
	logger.Info("decoded layer", zap.String("layer", layer.Name()), zap.Int("records", len(rows)))
	return spec.GeoJSON(rows), nil
}

func parseBound(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("bbox %q: want minx,miny,maxx,maxy", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox %q: %w", s, err)
		}
		v[i] = f
	}
	return orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}, nil
}
