package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/config"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/source"
	"github.com/spf13/cobra"
)

var (
	flagData     string
	flagBase     string
	flagTemplate string
	flagAttr     string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:          "badgebind",
	Short:        "badgebind fills badge templates from a data document",
	Long:         "Binds elements carrying a binding attribute to values looked up by dot-path in a YAML or JSON document.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg := config.Load()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagData, "data", cfg.DataSource, "data document path or URL")
	pf.StringVar(&flagBase, "base", cfg.DataBase, "base directory or URL the data location is resolved against")
	pf.StringVarP(&flagTemplate, "template", "t", cfg.TemplatePath, "badge template (.html or .md)")
	pf.StringVar(&flagAttr, "attr", cfg.BindAttr, "binding attribute name")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(bindCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(snapshotCmd)
}

// cliConfig returns the environment configuration overridden by flags.
func cliConfig() config.Config {
	cfg := config.Load()
	cfg.DataSource = flagData
	cfg.DataBase = flagBase
	cfg.TemplatePath = flagTemplate
	cfg.BindAttr = flagAttr
	return cfg
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newBinder(cfg config.Config, log *slog.Logger) (*binder.Binder, *source.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if !page.IsSupportedExtension(cfg.TemplatePath) {
		return nil, nil, fmt.Errorf("unsupported template %s (want .html, .htm, .md or .markdown)", cfg.TemplatePath)
	}
	src, err := source.New(cfg.DataSource, cfg.DataBase)
	if err != nil {
		return nil, nil, fmt.Errorf("data source: %w", err)
	}
	return binder.New(src, cfg.BindAttr, log, nil), src, nil
}
