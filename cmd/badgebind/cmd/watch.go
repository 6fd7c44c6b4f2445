package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dgallion1/badgebind/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOut    string
	watchFormat string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebind whenever the template or a local data file changes",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "badge.html", "output file")
	watchCmd.Flags().StringVarP(&watchFormat, "format", "f", "", "html, md or docx (default: from --out extension)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := cliConfig()
	log := newLogger()
	b, src, err := newBinder(cfg, log)
	if err != nil {
		return err
	}
	if watchOut == "-" {
		return fmt.Errorf("watch needs an output file")
	}
	format := outputFormat(watchFormat, watchOut)

	files := []string{cfg.TemplatePath}
	if !src.Remote() {
		files = append(files, src.Location())
	}
	w, err := watch.New(files, watch.DefaultDebounce, log)
	if err != nil {
		return err
	}
	defer w.Stop()

	rebuild := func(trigger string) {
		res, err := bindOnce(cmd, b, cfg.TemplatePath, watchOut, format)
		if err != nil {
			// Fetch failures are already logged by the binder.
			log.Debug("rebuild incomplete", "trigger", trigger, "error", err)
			return
		}
		log.Info("rebuilt", "trigger", trigger, "out", watchOut, "bound", res.Bound, "missing", len(res.Missing))
	}
	rebuild("start")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log.Info("watching", "files", files)
	if err := w.Run(ctx, rebuild); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
