package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	feature "github.com/tingold/orb-feature"
	"github.com/tingold/orb-feature/internal/fieldspec"
)

var (
	serveAddr   string
	serveStatic string
	serveSpec   string
)

var serveCmd = &cobra.Command{
	Use:   "serve FILE",
	Short: "Serve a layer as FlatGeobuf and as decoded GeoJSON",
	Long: `Serves the layer at /data.fgb (converted when the input is GeoJSON)
and, with --spec, the decoded records at /features.geojson. Optional
bbox=minx,miny,maxx,maxy narrows /features.geojson for FlatGeobuf input.
Other paths are served from --static when set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fgbData, err := layerAsFGB(args[0])
		if err != nil {
			return err
		}

		var spec *fieldspec.Spec
		if serveSpec != "" {
			if spec, err = fieldspec.Load(serveSpec); err != nil {
				return err
			}
		}

		handler := newHandler(args[0], fgbData, spec, serveStatic)
		logger.Info("server starting", zap.String("addr", serveAddr), zap.String("static", serveStatic))
		return http.ListenAndServe(serveAddr, handler)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveStatic, "static", "", "directory of client files")
	serveCmd.Flags().StringVarP(&serveSpec, "spec", "s", "", "YAML field spec for /features.geojson")
}

// layerAsFGB returns the FlatGeobuf encoding of the input's first layer.
func layerAsFGB(path string) ([]byte, error) {
	ds, closeFn, err := openDataset(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	layer, err := ds.Layer(feature.LayerByIndex(0))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	opts := feature.DefaultWriteOptions()
	opts.CRS = feature.WGS84()
	if err := feature.WriteLayer(&buf, layer, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func newHandler(path string, fgbData []byte, spec *fieldspec.Spec, static string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/data.fgb", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_, _ = w.Write(fgbData)
	})
	mux.HandleFunc("/features.geojson", func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			http.Error(w, "no field spec configured", http.StatusNotFound)
			return
		}
		fc, err := decodeFile(path, spec, strings.TrimSpace(r.URL.Query().Get("bbox")))
		if err != nil {
			logger.Warn("decode failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_ = json.NewEncoder(w).Encode(fc)
	})
	if static != "" {
		mux.Handle("/", http.FileServer(http.Dir(static)))
	}
	return mux
}
