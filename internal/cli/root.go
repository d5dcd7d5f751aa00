// Package cli implements the filtrador command line tool. Every command
// builds the same pipeline the HTTP server uses, configured from the
// environment with flag overrides.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/filtrador/internal/app"
	"github.com/JonMunkholm/filtrador/internal/config"
	"github.com/JonMunkholm/filtrador/internal/core"
	"github.com/JonMunkholm/filtrador/internal/logging"
)

// options holds the persistent flags and the configuration they produce.
type options struct {
	envFile  string
	mode     string
	path     string
	fileID   string
	logLevel string

	cfg *config.Config
}

// flagEnv maps persistent flags onto the variables they override.
var flagEnv = map[string]string{
	"mode":      "SOURCE_MODE",
	"path":      "SOURCE_PATH",
	"file-id":   "SOURCE_FILE_ID",
	"log-level": "LOG_LEVEL",
}

// NewRootCmd returns the filtrador command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "filtrador",
		Short: "Filter a spreadsheet by establishment and export the rows",
		Long: `filtrador reads a workbook whose header holds a Nombre_Establecimiento
column, lists the establishments it contains and exports the rows of one
of them as a new workbook.`,
		Example: `filtrador values
filtrador preview "Sucursal Centro"
filtrador export "Sucursal Centro" -o centro.xlsx
filtrador --mode remote --file-id 1AbC serve`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&o.envFile, "env-file", ".env", "Environment file to load; missing files are ignored.")
	flags.StringVar(&o.mode, "mode", "", "Source mode: file, remote or postgres (overrides SOURCE_MODE).")
	flags.StringVar(&o.path, "path", "", "Workbook path in file mode (overrides SOURCE_PATH).")
	flags.StringVar(&o.fileID, "file-id", "", "Remote file or database row identifier (overrides SOURCE_FILE_ID).")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LOG_LEVEL).")

	rootCmd.AddCommand(
		newValuesCmd(o),
		newPreviewCmd(o),
		newExportCmd(o),
		newStatusCmd(o),
		newServeCmd(o),
	)
	return rootCmd
}

// load reads the env file, applies flag overrides and loads the configuration.
// Logs go to stderr so stdout carries only command output.
func (o *options) load(cmd *cobra.Command) error {
	if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", o.envFile, err)
	}

	for flag, env := range flagEnv {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		value, err := cmd.Flags().GetString(flag)
		if err != nil {
			return err
		}
		if err := os.Setenv(env, value); err != nil {
			return err
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	o.cfg = cfg
	return nil
}

// build assembles the pipeline for one command. The caller closes it.
func (o *options) build(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg)
}

// Execute runs the command tree and reports a failure on stderr.
// It returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		report(stderr, err)
		return 1
	}
	return 0
}

// report prints the user message with its code, followed by the
// technical error. Unclassified errors are printed as they are.
func report(w io.Writer, err error) {
	if !core.IsUserFacing(err) {
		fmt.Fprintln(w, "Error:", err)
		return
	}
	ue := core.NewUserError(err)
	fmt.Fprintln(w, "Error:", core.FormatUserError(ue))
	fmt.Fprintln(w, "Detail:", ue.Technical)
}
