package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/simonmcc/md2quip"
	"github.com/simonmcc/md2quip/internal/commands/synccmd"
	"github.com/spf13/cobra"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 2
)

var version = "dev"

var moduleBuilder = func(cfg md2quip.Config) (*md2quip.Module, error) {
	return md2quip.New(cfg)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case md2quip.IsConfigurationError(err):
		fmt.Fprintf(stderr, "md2quip: %v\n", err)
		return exitConfigError
	case errors.Is(err, synccmd.ErrPublishIncomplete):
		fmt.Fprintln(stderr, "md2quip: some files could not be published")
		return exitFailure
	default:
		fmt.Fprintf(stderr, "md2quip: %v\n", err)
		return exitFailure
	}
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	loader := newConfigLoader()

	root := &cobra.Command{
		Use:   "md2quip",
		Short: "Publish a tree of markdown files to Quip",
		Long: `md2quip mirrors the markdown files of a project into a Quip folder.

Settings are read from md2quip.yml, MD2QUIP_* environment variables and
flags, with flags taking precedence.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	loader.bindGlobalFlags(root)

	root.AddCommand(
		newFindFoldersCommand(loader, false),
		newFindFoldersCommand(loader, true),
		newFindLocalFilesCommand(loader),
		newPublishCommand(loader),
		newWhoAmICommand(loader),
		newConfigCommand(loader),
	)
	return root
}
