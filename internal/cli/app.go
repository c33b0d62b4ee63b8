// Package cli implements the scalesync command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrlokans/scalesync/internal/apperr"
	"github.com/mrlokans/scalesync/internal/config"
	"github.com/mrlokans/scalesync/internal/logging"
)

type globalFlags struct {
	configFile string
	logLevel   string
	logFormat  string
	verbose    bool
}

// App is the scalesync command line application.
type App struct {
	version string
	stdout  io.Writer
	stderr  io.Writer
	flags   globalFlags
	styles  *Styles
}

// New creates the application writing to stdout and stderr.
func New(version string, stdout, stderr io.Writer) *App {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &App{
		version: version,
		stdout:  stdout,
		stderr:  stderr,
		styles:  NewStyles(),
	}
}

// Execute runs the command line with args. Errors are printed before they
// are returned; use ExitCode to map them to a process exit code.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		a.printError(err)
	}
	return err
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "scalesync",
		Short:   "Sync electronic scale products into MiAll",
		Version: a.version,
		Long: `scalesync reads the product catalog of a price computing scale
(SQLite or Access database) and creates or updates the matching products
in the MiAll retail database under the fresh produce category.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.flags.configFile, "config", "", "config file (default is appsettings.json next to the binary)")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.flags.logFormat, "log-format", "", "log format: console, json")
	root.PersistentFlags().BoolVarP(&a.flags.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")

	root.SetVersionTemplate("scalesync {{.Version}}\n")

	root.AddCommand(a.newSyncCommand())
	root.AddCommand(a.newCheckCommand())
	root.AddCommand(a.newHistoryCommand())
	root.AddCommand(a.newConfigCommand())
	root.AddCommand(a.newServeCommand())
	root.AddCommand(a.newStagingCommand())

	return root
}

// loadConfig reads the configuration and applies the logging flags.
func (a *App) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return nil, err
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	} else if a.flags.verbose {
		cfg.Log.Level = "debug"
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = a.flags.logFormat
	}
	return cfg, nil
}

func (a *App) logger(cfg *config.Config) zerolog.Logger {
	return logging.New(cfg.Log.Level, cfg.Log.Format, a.stderr)
}

func (a *App) printError(err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintln(a.stderr, a.styles.Error.Render("Error: ")+err.Error())
	if hint := apperr.Hint(err); hint != "" {
		fmt.Fprintln(a.stderr, a.styles.Muted.Render("Hint: "+hint))
	}
}
