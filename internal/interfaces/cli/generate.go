package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BlackCockder/IBEX-Mapper/internal/application/mapping"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/harmonics"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/filesystem"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

type generateOptions struct {
	name          string
	dpi           int
	maxL          int
	rotate        bool
	central       string
	meridian      string
	allowNegative bool
	palette       string
	scale         string
	outDir        string
	stdout        bool
	defaults      bool
}

// generateResult is one rendered table.
type generateResult struct {
	Source       string `json:"source"`
	RenderID     string `json:"render_id"`
	Output       string `json:"output,omitempty"`
	DPI          int    `json:"dpi"`
	MaxL         int    `json:"max_l"`
	Rotated      bool   `json:"rotated"`
	MissingCells int    `json:"missing_cells"`
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <table-file>...",
		Short: "Render coefficient tables into map scenes",
		Long: "Each table file holds rows of 'l m coefficient uncertainty'. Scenes are written\n" +
			"as file_{name}__res{dpi}.json under render.output_dir unless --stdout is set.\n" +
			"Flags override the saved map configuration for this run only.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "scene name (default: table file name without extension; single file only)")
	f.IntVar(&opts.dpi, "dpi", 0, "map accuracy in cells per side")
	f.IntVar(&opts.maxL, "max-l", 0, "maximum degree to cache")
	f.BoolVar(&opts.rotate, "rotate", false, "re-orient the map around --central and --meridian")
	f.StringVar(&opts.central, "central", "", "central point as lon,lat in degrees")
	f.StringVar(&opts.meridian, "meridian", "", "meridian point as lon,lat in degrees")
	f.BoolVar(&opts.allowNegative, "allow-negative", true, "keep negative heatmap values")
	f.StringVar(&opts.palette, "palette", "", "palette override ("+paletteNames()+")")
	f.StringVar(&opts.scale, "scale", "", "heatmap scale override as min,max")
	f.StringVar(&opts.outDir, "out-dir", "", "output directory override")
	f.BoolVar(&opts.stdout, "stdout", false, "write the scene JSON to stdout instead of a file")
	f.BoolVar(&opts.defaults, "defaults", false, "ignore the saved map configuration")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions, files []string) error {
	if opts.name != "" && len(files) > 1 {
		return errors.New(errors.CodeInvalidParam, "--name requires a single table file")
	}
	if opts.stdout && len(files) > 1 {
		return errors.New(errors.CodeInvalidParam, "--stdout requires a single table file")
	}
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	mc, err := mapConfigFromFlags(cmd, cliCtx.Store.Config(), opts)
	if err != nil {
		return err
	}
	var scale *features.HeatmapScale
	if opts.scale != "" {
		s, err := features.ParseHeatmapScale(opts.scale)
		if err != nil {
			return err
		}
		scale = &s
	}

	rt, err := cliCtx.Runtime()
	if err != nil {
		return err
	}
	sink := rt.Outputs
	if opts.outDir != "" {
		if sink, err = filesystem.NewBlobStore(opts.outDir, cliCtx.Logger); err != nil {
			return err
		}
	}

	results := make([]generateResult, 0, len(files))
	for _, file := range files {
		table, err := readTable(file)
		if err != nil {
			return err
		}
		name := opts.name
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		}

		scene, err := rt.Engine.Generate(cmd.Context(), mapping.Request{
			Name:    name,
			Table:   table,
			Map:     mc,
			Palette: opts.palette,
			Scale:   scale,
		})
		if err != nil {
			return errors.Wrapf(err, errors.GetCode(err), "render %s", file)
		}

		res := generateResult{
			Source:       file,
			RenderID:     scene.ID,
			DPI:          scene.DPI,
			MaxL:         scene.MaxL,
			Rotated:      scene.Rotation != nil,
			MissingCells: scene.Heatmap.MissingCells,
		}
		if opts.stdout {
			data, err := scene.Marshal()
			if err != nil {
				return errors.Wrap(err, errors.CodeSerialization, "failed to encode scene")
			}
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		key, err := rt.Engine.Export(cmd.Context(), scene, sink)
		if err != nil {
			return err
		}
		res.Output = filepath.Join(sink.Dir(), key)
		results = append(results, res)
		cliCtx.Logger.Info("map generated", logging.String("source", file), logging.String("output", res.Output))
	}

	return PrintResult(cmd, results, func(w io.Writer) {
		for _, r := range results {
			fmt.Fprintf(w, "Map generated: %s (dpi %d, max_l %d, missing cells %d)\n", r.Output, r.DPI, r.MaxL, r.MissingCells)
		}
	})
}

// mapConfigFromFlags starts from the saved map section (or the defaults) and
// applies only the flags the user set.
func mapConfigFromFlags(cmd *cobra.Command, cfg *config.Config, opts *generateOptions) (config.MapConfig, error) {
	b := config.NewMapBuilder()
	if opts.defaults {
		b.Limits(cfg.Map.MaxAccuracy, cfg.Map.MaxLLimit)
	} else {
		b.FromSection(cfg.Map)
	}
	flags := cmd.Flags()
	if flags.Changed("dpi") {
		b.MapAccuracy(opts.dpi)
	}
	if flags.Changed("max-l") {
		b.MaxLToCache(opts.maxL)
	}
	if flags.Changed("rotate") {
		b.Rotate(opts.rotate)
	}
	if flags.Changed("allow-negative") {
		b.AllowNegativeValues(opts.allowNegative)
	}
	if opts.central != "" {
		p, err := sphere.ParseGeoPoint(opts.central)
		if err != nil {
			return config.MapConfig{}, err
		}
		b.CentralPoint(p.Lon, p.Lat)
	}
	if opts.meridian != "" {
		p, err := sphere.ParseGeoPoint(opts.meridian)
		if err != nil {
			return config.MapConfig{}, err
		}
		b.MeridianPoint(p.Lon, p.Lat)
	}
	return b.Build()
}

func readTable(path string) (*harmonics.CoefficientTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNotFound, "cannot open coefficient table").WithDetail(path)
	}
	defer f.Close()
	return harmonics.ParseTable(f)
}

func paletteNames() string {
	names := make([]string, len(features.Palettes))
	for i, p := range features.Palettes {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
