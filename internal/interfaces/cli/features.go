package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/features"
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/storage/filesystem"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// featureKind describes one catalog collection for the shared
// add/remove/list/clear command tree.
type featureKind struct {
	kind    features.Kind
	plural  string
	headers []string
	rows    func(c *features.Catalog) (interface{}, [][]string)
	add     func() *cobra.Command
}

var pointKind = featureKind{
	kind:    features.KindPoint,
	plural:  "points",
	headers: []string{"NAME", "LON", "LAT", "COLOR", "MARKER", "LABEL"},
	rows: func(c *features.Catalog) (interface{}, [][]string) {
		rows := make([][]string, len(c.Points))
		for i, p := range c.Points {
			rows[i] = []string{p.Name, formatFloat(p.Coordinates.Lon), formatFloat(p.Coordinates.Lat), p.Color, p.PointType, cast.ToString(p.ShowText)}
		}
		return c.Points, rows
	},
	add: newPointAddCmd,
}

var circleKind = featureKind{
	kind:    features.KindCircle,
	plural:  "circles",
	headers: []string{"NAME", "LON", "LAT", "ALPHA", "COLOR", "STYLE"},
	rows: func(c *features.Catalog) (interface{}, [][]string) {
		rows := make([][]string, len(c.Circles))
		for i, ci := range c.Circles {
			rows[i] = []string{ci.Name, formatFloat(ci.Coordinates.Lon), formatFloat(ci.Coordinates.Lat), formatFloat(ci.Alpha), ci.Color, ci.LineStyle}
		}
		return c.Circles, rows
	},
	add: newCircleAddCmd,
}

var textKind = featureKind{
	kind:    features.KindText,
	plural:  "texts",
	headers: []string{"TEXT", "LON", "LAT", "COLOR", "SIZE", "TILT"},
	rows: func(c *features.Catalog) (interface{}, [][]string) {
		rows := make([][]string, len(c.Texts))
		for i, t := range c.Texts {
			rows[i] = []string{t.Name, formatFloat(t.Coordinates.Lon), formatFloat(t.Coordinates.Lat), t.Color, cast.ToString(t.FontSize), formatFloat(t.TiltAngle)}
		}
		return c.Texts, rows
	},
	add: newTextAddCmd,
}

func newFeatureKindCmd(k featureKind) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(k.kind),
		Short: fmt.Sprintf("Manage map %s", k.plural),
	}

	removeCmd := &cobra.Command{
		Use:   "remove <name>",
		Short: fmt.Sprintf("Remove one of the %s by name", k.plural),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Remove(cmd.Context(), k.kind, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("removed %s %q", k.kind, args[0]))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List stored %s", k.plural),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			catalog, err := svc.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			data, rows := k.rows(catalog)
			return PrintResult(cmd, data, func(w io.Writer) {
				if len(rows) == 0 {
					fmt.Fprintf(w, "No %s stored.\n", k.plural)
					return
				}
				fmt.Fprint(w, FormatTable(k.headers, rows))
			})
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: fmt.Sprintf("Remove all %s", k.plural),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, fmt.Sprintf("Delete ALL %s?", k.plural), yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Clear(cmd.Context(), k.kind); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("all %s removed", k.plural))
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(k.add(), removeCmd, listCmd, clearCmd)
	return cmd
}

func newPointAddCmd() *cobra.Command {
	var p features.Point
	cmd := &cobra.Command{
		Use:     "add <name> <lon,lat>",
		Short:   "Add a point marker",
		Example: "  ibexmap point add nose \"-105,5\" --color red --marker x",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := sphere.ParseGeoPoint(args[1])
			if err != nil {
				return err
			}
			p.Name, p.Coordinates = args[0], coords
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.AddPoint(cmd.Context(), p); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("added point %q", p.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Color, "color", "", "marker color (default white)")
	cmd.Flags().StringVar(&p.PointType, "marker", "", "marker style (default o)")
	cmd.Flags().BoolVar(&p.ShowText, "label", false, "draw the name next to the marker")
	return cmd
}

func newCircleAddCmd() *cobra.Command {
	var c features.Circle
	cmd := &cobra.Command{
		Use:   "add <name> <lon,lat> <alpha>",
		Short: "Add a small circle of angular radius alpha degrees",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := sphere.ParseGeoPoint(args[1])
			if err != nil {
				return err
			}
			alpha, err := cast.ToFloat64E(args[2])
			if err != nil {
				return errors.Wrap(err, errors.CodeFeatureInvalid, "circle radius is not a number").WithDetail(args[2])
			}
			c.Name, c.Coordinates, c.Alpha = args[0], coords, alpha
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.AddCircle(cmd.Context(), c); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("added circle %q", c.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&c.Color, "color", "", "line color (default white)")
	cmd.Flags().StringVar(&c.LineStyle, "linestyle", "", "line style (default solid)")
	return cmd
}

func newTextAddCmd() *cobra.Command {
	var t features.Text
	cmd := &cobra.Command{
		Use:   "add <text> <lon,lat>",
		Short: "Add a text annotation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coords, err := sphere.ParseGeoPoint(args[1])
			if err != nil {
				return err
			}
			t.Name, t.Coordinates = args[0], coords
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.AddText(cmd.Context(), t); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("added text %q", t.Name))
			return nil
		},
	}
	cmd.Flags().StringVar(&t.Color, "color", "", "text color (default white)")
	cmd.Flags().IntVar(&t.FontSize, "font-size", 0, "font size (default 10)")
	cmd.Flags().Float64Var(&t.TiltAngle, "tilt", 0, "rotation of the text in degrees")
	return cmd
}

func newPaletteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "palette",
		Short: "Show or select the heatmap color palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			catalog, err := svc.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, map[string]features.Palette{"palette": catalog.Palette}, func(w io.Writer) {
				fmt.Fprintln(w, catalog.Palette)
			})
		},
	}
	setCmd := &cobra.Command{
		Use:       "set <name>",
		Short:     "Select the palette used by later renders",
		Args:      cobra.ExactArgs(1),
		ValidArgs: strings.Split(paletteNames(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.SetPalette(cmd.Context(), args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, "palette set to "+args[0])
			return nil
		},
	}
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List supported palettes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, features.Palettes, func(w io.Writer) {
				for _, p := range features.Palettes {
					fmt.Fprintln(w, p)
				}
			})
		},
	}
	cmd.AddCommand(setCmd, listCmd)
	return cmd
}

func newScaleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Show or change the heatmap value scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			catalog, err := svc.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			s := catalog.HeatmapScale
			return PrintResult(cmd, s, func(w io.Writer) {
				if !s.IsSet() {
					fmt.Fprintln(w, "auto")
					return
				}
				fmt.Fprintf(w, "%s,%s\n", formatFloat(s.Min), formatFloat(s.Max))
			})
		},
	}
	setCmd := &cobra.Command{
		Use:   "set <min,max>",
		Short: "Clip heatmap values to [min, max]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := features.ParseHeatmapScale(args[0])
			if err != nil {
				return err
			}
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.SetHeatmapScale(cmd.Context(), s); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("heatmap scale set to [%s, %s]", formatFloat(s.Min), formatFloat(s.Max)))
			return nil
		},
	}
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Return to automatic scaling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.SetHeatmapScale(cmd.Context(), features.HeatmapScale{}); err != nil {
				return err
			}
			PrintSuccess(cmd, "heatmap scale cleared")
			return nil
		},
	}
	cmd.AddCommand(setCmd, clearCmd)
	return cmd
}

func newFeaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Show or reset the whole feature catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			catalog, err := svc.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, catalog)
		},
	}
	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every feature and restore the default palette and scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, "Reset the feature catalog?", yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			svc, err := featureService(cmd)
			if err != nil {
				return err
			}
			if err := svc.Reset(cmd.Context()); err != nil {
				return err
			}
			PrintSuccess(cmd, "feature catalog reset")
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(resetCmd)
	return cmd
}

func featureService(cmd *cobra.Command) (features.Service, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, err
	}
	if cliCtx.runtime != nil {
		return cliCtx.runtime.Features, nil
	}
	render := cliCtx.Store.Config().Render
	palette, _ := features.ParsePalette(render.Palette)
	catalog, err := filesystem.NewCatalogStore(render.FeaturesFile, cliCtx.Logger,
		filesystem.WithInitialStyle(palette, render.HeatmapScale))
	if err != nil {
		return nil, err
	}
	return features.NewService(catalog, cliCtx.Logger), nil
}
