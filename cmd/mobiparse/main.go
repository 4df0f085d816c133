package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mobiparse/catalog"
	"mobiparse/config"
	"mobiparse/extract"
	"mobiparse/misc"
	"mobiparse/state"
)

func beforeAppRun(ctx *cli.Context) (err error) {
	if ctx.NArg() == 0 {
		return nil
	}
	env := state.Get(ctx)

	configFile := ctx.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if env.Log, err = env.Cfg.Logging.Prepare(ctx.Bool("debug")); err != nil {
		return fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RestoreStdLog = zap.RedirectStdLog(env.Log)

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()+" ("+runtime.Version()+") : "+misc.GetGitHash()))
	return nil
}

func afterAppRun(ctx *cli.Context) error {
	env := state.Get(ctx)
	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", time.Since(env.Start)), zap.Strings("parsed args", ctx.Args().Slice()))
	}
	return nil
}

func beforeCmdRun(ctx *cli.Context) (err error) {
	env := state.Get(ctx)

	configFile := ctx.String("config")
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return nil
}

func main() {

	env := state.NewLocalEnv()

	app := &cli.App{
		Name:            "mobiparse",
		Usage:           "inspecting and unpacking MOBI, AZW3 and hybrid Kindle books",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          beforeAppRun,
		After:           afterAppRun,
		Flags: []cli.Flag{
			&cli.GenericFlag{Name: state.FlagName, Hidden: true, Value: env},
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting"},
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Prints book metadata and structure (YAML)",
				Before:    beforeCmdRun,
				Action:    extract.RunInfo,
				ArgsUsage: "BOOK",
				CustomHelpTemplate: fmt.Sprintf(`%s
Prints metadata, spine, table of contents and guide of the book.
Nothing is written to disk.
`, cli.CommandHelpTemplate),
			},
			{
				Name:      "extract",
				Usage:     "Unpacks book chapters and resources",
				Before:    beforeCmdRun,
				Action:    extract.RunExtract,
				ArgsUsage: "BOOK [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    directory to unpack book into, if absent - 'output' from configuration

Every processed chapter is written as separate html file along with images, fonts,
stylesheets and table of contents into directory named after book title.
Extraction is recorded in the catalog.
`, cli.CommandHelpTemplate),
			},
			{
				Name:      "cover",
				Usage:     "Saves book cover and its thumbnail",
				Before:    beforeCmdRun,
				Action:    extract.RunCover,
				ArgsUsage: "BOOK [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    directory to save images into, if absent - 'output' from configuration

Thumbnail is produced according to 'thumbnails' configuration. Full size cover
is left in place only when resources are configured to be kept.
`, cli.CommandHelpTemplate),
			},
			{
				Name:   "catalog",
				Usage:  "Lists details for local catalog files",
				Before: beforeCmdRun,
				Action: catalog.List,
				CustomHelpTemplate: fmt.Sprintf(`%s
Lists local catalog databases specifying extracted books for each of them.
`, cli.CommandHelpTemplate),
			},
			{
				Name:   "dumpconfig",
				Usage:  "Dumps either default or active configuration (YAML)",
				Before: beforeCmdRun,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "output active configuration to be used in actual operations, including values from --config file"},
				},
				Action:    outputConfiguration,
				ArgsUsage: "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with default configuration values.
To see actual "active" configuration use dry-run mode.
`, cli.CommandHelpTemplate),
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		if env.Log != nil {
			env.Log.Error("Command ended with error", zap.Error(err))
		} else {
			// if we do not have logger yet, we can only print to stderr
			fmt.Fprintf(os.Stderr, "Command ended with error: %v\n", err)
		}
	}
	if env.Log != nil {
		_ = env.Log.Sync()
		env.RestoreStdLog()
		env.Log = nil
	}
	if err != nil {
		os.Exit(1)
	}
}

func outputConfiguration(ctx *cli.Context) error {

	env := state.Get(ctx)
	if ctx.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", ctx.Args().Slice()[1:]))
	}

	fname := ctx.Args().Get(0)

	var (
		err  error
		data []byte
		kind string
	)

	out := ctx.App.Writer
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	if ctx.Bool("dry-run") {
		kind = "active"
		data, err = config.Dump(env.Cfg)
	} else {
		kind = "default"
		data, err = config.Prepare()
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	env.Log.Info("Outputing configuration", zap.String("state", kind), zap.String("file", fname))

	if _, err = fmt.Fprintf(out, "# %s configuration, mobiparse %s\n", kind, misc.GetVersion()); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
