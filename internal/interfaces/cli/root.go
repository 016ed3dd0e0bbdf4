// Package cli implements the ibexmap command line: map generation, feature
// catalog maintenance, configuration and basis cache management.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/BlackCockder/IBEX-Mapper/internal/app"
	"github.com/BlackCockder/IBEX-Mapper/internal/config"
	"github.com/BlackCockder/IBEX-Mapper/internal/infrastructure/monitoring/logging"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
}

// CLIContext carries initialized dependencies through the command tree. The
// runtime is assembled on first use so config commands never dial a cache
// backend.
type CLIContext struct {
	Store        *config.Store
	Logger       logging.Logger
	OutputFormat string

	runtime *app.App
}

// Runtime returns the wired application, building it on first call.
func (c *CLIContext) Runtime() (*app.App, error) {
	if c.runtime != nil {
		return c.runtime, nil
	}
	rt, err := app.New(c.Store.Config(), app.WithLogger(c.Logger))
	if err != nil {
		return nil, err
	}
	c.runtime = rt
	return rt, nil
}

// Close releases the runtime if one was built.
func (c *CLIContext) Close() error {
	if c.runtime == nil {
		return nil
	}
	err := c.runtime.Close()
	c.runtime = nil
	return err
}

// Option customizes the root command, mostly for tests.
type Option func(*settings)

type settings struct {
	logger logging.Logger
}

// WithLogger replaces the stderr logger built from --log-level.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// NewRootCommand creates the root cobra command with all global flags and subcommands.
func NewRootCommand(opts ...Option) *cobra.Command {
	ro := &RootOptions{}
	st := &settings{}
	for _, opt := range opts {
		opt(st)
	}

	cmd := &cobra.Command{
		Use:   "ibexmap",
		Short: "IBEX-Mapper CLI: spherical-harmonics sky maps in Mollweide projection",
		Long: "ibexmap turns tables of real spherical-harmonics coefficients into heatmap scenes,\n" +
			"optionally re-oriented around a chosen central point, and manages the feature\n" +
			"catalog, configuration and basis cache used to render them.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, ro, st)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				return cliCtx.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&ro.ConfigPath, "config", "c", "", "config file path (default: ./ibex.yaml)")
	pf.StringVar(&ro.LogLevel, "log-level", "", "log level (debug, info, warn, error; default from config)")
	pf.StringVarP(&ro.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.BoolVarP(&ro.Verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newGenerateCmd(),
		newFeatureKindCmd(pointKind),
		newFeatureKindCmd(circleKind),
		newFeatureKindCmd(textKind),
		newPaletteCmd(),
		newScaleCmd(),
		newFeaturesCmd(),
		newConfigCmd(),
		newCacheCmd(),
		newVersionCmd(),
	)
	return cmd
}

// persistentPreRun opens the config store and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, ro *RootOptions, st *settings) error {
	switch strings.ToLower(ro.OutputFormat) {
	case "text", "json":
	default:
		return errors.New(errors.CodeInvalidParam, "output format must be text or json").WithDetail(ro.OutputFormat)
	}

	logger := st.logger
	if logger == nil {
		var err error
		logger, err = initLogger(ro)
		if err != nil {
			return fmt.Errorf("logger initialization failed: %w", err)
		}
	}

	store, err := config.OpenStore(ro.ConfigPath, logger)
	if err != nil {
		return err
	}

	cliCtx := &CLIContext{
		Store:        store,
		Logger:       logger,
		OutputFormat: strings.ToLower(ro.OutputFormat),
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

// initLogger creates a console logger on stderr so stdout carries only
// command output.
func initLogger(ro *RootOptions) (logging.Logger, error) {
	level := ro.LogLevel
	if level == "" {
		level = logging.LevelWarn
	}
	if ro.Verbose {
		level = logging.LevelDebug
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.CodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.CodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// Execute is the main entry point for the CLI application.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

// PrintResult writes data as JSON when -o json is set, otherwise it writes
// text produced by render.
func PrintResult(cmd *cobra.Command, data interface{}, render func(w io.Writer)) error {
	cliCtx, err := GetCLIContext(cmd)
	if err == nil && cliCtx.OutputFormat == "json" {
		return printJSON(cmd, data)
	}
	if render == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", data)
		return nil
	}
	render(cmd.OutOrStdout())
	return nil
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// PrintSuccess writes a formatted success message to stdout.
func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(colWidths); i++ {
			if len(row[i]) > colWidths[i] {
				colWidths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			sb.WriteString(padRight(val, colWidths[i]))
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	sep := make([]string, len(headers))
	for i, w := range colWidths {
		sep[i] = strings.Repeat("-", w)
	}
	writeRow(sep)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// confirm asks a yes/no question on the command's input unless assumeYes.
func confirm(cmd *cobra.Command, question string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func formatFloat(v float64) string {
	return cast.ToString(v)
}
