package main

import (
	"github.com/simonmcc/md2quip"
	"github.com/simonmcc/md2quip/internal/commands/synccmd"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type validation int

const (
	validateLocal validation = iota
	validateCredentials
	validateRemote
)

// prepare loads the configuration for cmd, checks what the command needs
// and builds the module. Configuration errors surface before any remote
// call.
func (l *configLoader) prepare(cmd *cobra.Command, level validation) (md2quip.Config, *md2quip.CommandSet, error) {
	l.bindFlags(cmd.Flags())

	cfg, err := l.Load()
	if err != nil {
		return cfg, nil, err
	}

	switch level {
	case validateRemote:
		err = cfg.ValidateRemote()
	case validateCredentials:
		err = cfg.ValidateCredentials()
	default:
		err = cfg.Validate()
	}
	if err != nil {
		return cfg, nil, err
	}

	module, err := moduleBuilder(cfg)
	if err != nil {
		return cfg, nil, err
	}
	set, err := module.Commands(nil, cmd.OutOrStdout())
	if err != nil {
		return cfg, nil, err
	}
	return module.Config(), set, nil
}

func newFindFoldersCommand(loader *configLoader, includeDocuments bool) *cobra.Command {
	use, short := "find-folders", "Print the folder tree below the root folder"
	if includeDocuments {
		use, short = "find-folders-and-docs", "Print the folder tree below the root folder with its documents"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, set, err := loader.prepare(cmd, validateRemote)
			if err != nil {
				return err
			}
			return set.ListFolders.Execute(cmd.Context(), synccmd.ListFoldersCommand{
				RootReference:    cfg.Quip.Root,
				IncludeDocuments: includeDocuments,
			})
		},
	}
}

func newFindLocalFilesCommand(loader *configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find-local-files",
		Short: "Print the local files that would be published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, set, err := loader.prepare(cmd, validateLocal)
			if err != nil {
				return err
			}
			return set.ListLocalFiles.Execute(cmd.Context(), synccmd.ListLocalFilesCommand{
				ProjectRoot: cfg.Project.Root,
			})
		},
	}
	cmd.Flags().String("path", ".", "Project directory to scan")
	return cmd
}

func newPublishCommand(loader *configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish the local markdown files into the root folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, set, err := loader.prepare(cmd, validateRemote)
			if err != nil {
				return err
			}
			return set.Publish.Execute(cmd.Context(), synccmd.PublishCommand{
				RootReference: cfg.Quip.Root,
				ProjectRoot:   cfg.Project.Root,
				AtRoot:        cfg.Publish.AtRoot,
				DryRun:        cfg.Publish.DryRun,
			})
		},
	}
	flags := cmd.Flags()
	flags.String("path", ".", "Project directory to publish")
	flags.Bool("publish-at-root", false, "Place every document directly in the root folder")
	flags.Bool("dry-run", false, "Report what would be published without writing")
	return cmd
}

func newWhoAmICommand(loader *configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the account behind the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, set, err := loader.prepare(cmd, validateCredentials)
			if err != nil {
				return err
			}
			return set.WhoAmI.Execute(cmd.Context(), synccmd.WhoAmICommand{})
		},
	}
}

func newConfigCommand(loader *configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with the token redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader.bindFlags(cmd.Flags())
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg.Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}
