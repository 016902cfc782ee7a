package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"github.com/urfave/cli"

	"github.com/tetratelabs/hostvfs"
	"github.com/tetratelabs/hostvfs/internal/version"
)

const appName = "hostvfs"

func main() {
	doMain(os.Args, os.Stdout, os.Stderr, os.Exit)
}

// doMain is separated out for the purpose of unit testing.
func doMain(args []string, stdOut, stdErr io.Writer, exit func(code int)) {
	var exitCode int
	app := newApp(stdOut, stdErr, &exitCode)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stdErr, "%s: %v\n", appName, err)
		exit(1)
		return
	}
	exit(exitCode)
}

func newApp(stdOut, stdErr io.Writer, exitCode *int) *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.HelpName = appName
	app.Usage = "run a SQLite WebAssembly guest over a host filesystem"
	app.UsageText = "hostvfs <command> [arguments...]"
	app.Version = version.GetHostVFSVersion()
	app.HideVersion = true
	app.Writer = stdOut
	app.ErrWriter = stdErr
	app.Commands = []cli.Command{
		{
			Name:           "run",
			Usage:          "instantiates the VFS and WASI, then runs the guest",
			ArgsUsage:      "<path to wasm file> [--] [guest arguments...]",
			Flags:          runFlags,
			SkipArgReorder: true,
			Action: func(c *cli.Context) error {
				code, err := doRun(c, stdOut, stdErr)
				*exitCode = code
				return err
			},
		},
		{
			Name:  "version",
			Usage: "prints the version",
			Action: func(c *cli.Context) error {
				fmt.Fprintf(stdOut, "%s %s (wazero %s)\n", appName, version.GetHostVFSVersion(), version.GetWazeroVersion())
				return nil
			},
		},
	}
	return app
}

var runFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config",
		Usage: "YAML file of defaults for the flags below",
	},
	cli.StringFlag{
		Name:  "root",
		Usage: "host directory the guest's paths are relative to (default: the whole filesystem)",
	},
	cli.StringFlag{
		Name:  "writable-root",
		Usage: "only guest path prefix reported writable, also where unnamed files are created",
	},
	cli.StringFlag{
		Name:  "module",
		Usage: "host module the guest imports the VFS from",
		Value: hostvfs.DefaultModuleName,
	},
	cli.StringFlag{
		Name:  "name",
		Usage: "VFS name",
		Value: hostvfs.DefaultName,
	},
	cli.UintFlag{
		Name:  "max-pathname",
		Usage: "longest file name read from the guest",
		Value: hostvfs.DefaultMaxPathname,
	},
	cli.BoolFlag{
		Name:  "interp",
		Usage: "force the interpreter",
	},
	cli.BoolFlag{
		Name:  "debug",
		Usage: "log every VFS call to stderr",
	},
}

// doRun returns the exit code of the guest, or an error if it could not be
// run.
func doRun(c *cli.Context, stdOut, stdErr io.Writer) (int, error) {
	args := c.Args()
	if !args.Present() {
		_ = cli.ShowCommandHelp(c, c.Command.Name)
		return 1, errors.New("missing path to wasm file")
	}
	wasmPath := args.First()
	wasmArgs := args.Tail()
	if len(wasmArgs) > 0 && wasmArgs[0] == "--" {
		wasmArgs = wasmArgs[1:]
	}

	opts, err := loadRunOptions(c)
	if err != nil {
		return 1, err
	}

	logger := logrus.New()
	logger.SetOutput(stdErr)
	logger.SetLevel(opts.level)

	wasm, err := os.ReadFile(wasmPath)
	if err != nil {
		return 1, fmt.Errorf("error reading wasm binary: %w", err)
	}

	ctx := context.Background()
	var rtc wazero.RuntimeConfig
	if opts.Interp {
		rtc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rtc = wazero.NewRuntimeConfig()
	}
	rt := wazero.NewRuntimeWithConfig(ctx, rtc)
	defer rt.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, rt)

	v, err := hostvfs.Instantiate(ctx, rt, opts.vfsConfig(logger))
	if err != nil {
		return 1, err
	}
	defer func() {
		if err := v.Close(ctx); err != nil {
			logger.WithError(err).Warn("closing files left open")
		}
	}()

	conf := wazero.NewModuleConfig().
		WithStdout(stdOut).
		WithStderr(stdErr).
		WithStdin(os.Stdin).
		WithRandSource(rand.Reader).
		WithSysNanosleep().
		WithSysNanotime().
		WithSysWalltime().
		WithArgs(append([]string{filepath.Base(wasmPath)}, wasmArgs...)...)

	logger.WithFields(logrus.Fields{"wasm": wasmPath, "root": opts.Root, "module": opts.Module}).Debug("run")
	mod, err := rt.InstantiateWithConfig(ctx, wasm, conf)
	if err != nil {
		var exitErr *sys.ExitError
		if errors.As(err, &exitErr) {
			return int(exitErr.ExitCode()), nil
		}
		return 1, fmt.Errorf("error instantiating wasm binary: %w", err)
	}
	// _start, if any, ran during instantiation.
	_ = mod.Close(ctx)
	return 0, nil
}

// vfsConfig returns the configuration of the VFS for these options.
func (o *runOptions) vfsConfig(logger logrus.FieldLogger) *hostvfs.Config {
	var fs afero.Fs = afero.NewOsFs()
	if o.Root != "" {
		fs = afero.NewBasePathFs(fs, o.Root)
	}
	return hostvfs.NewConfig().
		WithFS(fs).
		WithName(o.Name).
		WithModuleName(o.Module).
		WithMaxPathname(o.MaxPathname).
		WithWritableRoot(o.WritableRoot).
		WithRandSource(rand.Reader).
		WithNanosleep(func(ns int64) { time.Sleep(time.Duration(ns)) }).
		WithLogger(logger)
}
