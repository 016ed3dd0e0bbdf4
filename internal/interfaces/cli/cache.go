package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/BlackCockder/IBEX-Mapper/internal/application/basiscache"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
)

type warmResult struct {
	Key       string        `json:"key"`
	DPI       int           `json:"dpi"`
	MaxL      int           `json:"max_l"`
	Evaluated bool          `json:"evaluated"`
	Elapsed   time.Duration `json:"elapsed"`
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the basis cache",
	}

	var dpi, maxL int
	warmCmd := &cobra.Command{
		Use:   "warm",
		Short: "Evaluate and persist the basis set for the configured accuracy",
		Long: "Evaluates the basis for (map_accuracy, max_l_to_cache) unless it is already\n" +
			"stored on the configured backend. Flags override the saved values.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			section := cliCtx.Store.Config().Map
			if cmd.Flags().Changed("dpi") {
				section.MapAccuracy = dpi
			}
			if cmd.Flags().Changed("max-l") {
				section.MaxLToCache = maxL
			}
			if _, err := config.NewMapBuilder().FromSection(section).Build(); err != nil {
				return err
			}
			rt, err := cliCtx.Runtime()
			if err != nil {
				return err
			}

			start := time.Now()
			evaluated, err := rt.Cache.Warm(cmd.Context(), section.MapAccuracy, section.MaxLToCache)
			if err != nil {
				return err
			}
			res := warmResult{
				Key:       basiscache.Key(section.MapAccuracy, section.MaxLToCache),
				DPI:       section.MapAccuracy,
				MaxL:      section.MaxLToCache,
				Evaluated: evaluated,
				Elapsed:   time.Since(start),
			}
			cliCtx.Logger.Info("cache warmed", logging.String("key", res.Key), logging.Bool("evaluated", evaluated))
			return PrintResult(cmd, res, func(w io.Writer) {
				if evaluated {
					fmt.Fprintf(w, "Evaluated %s in %s\n", res.Key, res.Elapsed.Round(time.Millisecond))
					return
				}
				fmt.Fprintf(w, "%s already cached\n", res.Key)
			})
		},
	}
	warmCmd.Flags().IntVar(&dpi, "dpi", 0, "map accuracy override")
	warmCmd.Flags().IntVar(&maxL, "max-l", 0, "maximum degree override")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached basis sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rt, err := cliCtx.Runtime()
			if err != nil {
				return err
			}
			keys, err := rt.Cache.Keys(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, keys, func(w io.Writer) {
				if len(keys) == 0 {
					fmt.Fprintf(w, "No basis sets cached on %s.\n", rt.Backend.Name())
					return
				}
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
			})
		},
	}

	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached basis set from the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd, "Delete all cached basis sets?", yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rt, err := cliCtx.Runtime()
			if err != nil {
				return err
			}
			n, err := rt.Cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("removed %d basis sets", n))
			return nil
		},
	}
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	cmd.AddCommand(warmCmd, listCmd, clearCmd)
	return cmd
}
