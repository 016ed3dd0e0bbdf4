package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the saved configuration",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print every configuration key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return printJSON(cmd, cliCtx.Store.Config())
			}
			keys := cliCtx.Store.Keys()
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				v, err := cliCtx.Store.Get(k)
				if err != nil {
					return err
				}
				rows = append(rows, []string{k, formatValue(v)})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration (%s)\n", cliCtx.Store.Path())
			fmt.Fprint(cmd.OutOrStdout(), FormatTable([]string{"KEY", "VALUE"}, rows))
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			v, err := cliCtx.Store.Get(args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, map[string]interface{}{args[0]: v}, func(w io.Writer) {
				fmt.Fprintln(w, formatValue(v))
			})
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value> [<key> <value>...]",
		Short: "Change configuration values",
		Long: "Values are validated together and written to the config file only when the\n" +
			"resulting configuration is valid. Point keys (map.central_point,\n" +
			"map.meridian_point) also accept a single lon,lat value.",
		Example: "  ibexmap config set map.map_accuracy 440 map.rotate true\n" +
			"  ibexmap config set map.central_point \"-70,0\"",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New(errors.CodeInvalidParam, "expected key/value pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			edits, err := expandEdits(cliCtx.Store.Keys(), args)
			if err != nil {
				return err
			}
			if err := cliCtx.Store.SetMany(edits); err != nil {
				return err
			}
			keys := make([]string, 0, len(edits))
			for k := range edits {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			PrintSuccess(cmd, "config updated: "+strings.Join(keys, ", "))
			return nil
		},
	}

	var yes bool
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore every configuration default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, "Reset configuration to defaults?", yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.Store.Reset(); err != nil {
				return err
			}
			PrintSuccess(cmd, "configuration reset")
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cliCtx.Store.Path())
			return nil
		},
	}

	cmd.AddCommand(showCmd, getCmd, setCmd, resetCmd, pathCmd)
	return cmd
}

// expandEdits pairs up args and splits lon,lat values given for point keys.
func expandEdits(known []string, args []string) (map[string]string, error) {
	leaf := make(map[string]bool, len(known))
	for _, k := range known {
		leaf[k] = true
	}
	edits := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key, value := strings.ToLower(args[i]), args[i+1]
		if !leaf[key] && leaf[key+".lon"] && leaf[key+".lat"] {
			p, err := sphere.ParseGeoPoint(value)
			if err != nil {
				return nil, err
			}
			edits[key+".lon"] = formatFloat(p.Lon)
			edits[key+".lat"] = formatFloat(p.Lat)
			continue
		}
		edits[key] = value
	}
	return edits, nil
}

func formatValue(v interface{}) string {
	switch x := v.(type) {
	case []string:
		return "[" + strings.Join(x, ", ") + "]"
	case []interface{}:
		return "[" + strings.Join(cast.ToStringSlice(x), ", ") + "]"
	case map[string]string, map[string]interface{}:
		return fmt.Sprintf("%v", x)
	}
	return cast.ToString(v)
}
