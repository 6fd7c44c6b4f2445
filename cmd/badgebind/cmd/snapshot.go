package cmd

import (
	"fmt"
	"os"

	"github.com/dgallion1/badgebind/internal/export"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/dgallion1/badgebind/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	snapshotOut         string
	snapshotTransparent bool
	snapshotWidth       int
	snapshotHeight      int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Bind the template and save it as a PNG",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOut, "out", "o", "badge.png", "output PNG file")
	snapshotCmd.Flags().BoolVar(&snapshotTransparent, "transparent", false, "make white pixels transparent")
	snapshotCmd.Flags().IntVar(&snapshotWidth, "width", 0, "viewport width (default: SNAPSHOT_WIDTH)")
	snapshotCmd.Flags().IntVar(&snapshotHeight, "height", 0, "viewport height (default: SNAPSHOT_HEIGHT)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg := cliConfig()
	if snapshotWidth > 0 {
		cfg.SnapshotWidth = snapshotWidth
	}
	if snapshotHeight > 0 {
		cfg.SnapshotHeight = snapshotHeight
	}
	log := newLogger()
	b, _, err := newBinder(cfg, log)
	if err != nil {
		return err
	}

	root, err := page.LoadFile(cfg.TemplatePath, b.Attr())
	if err != nil {
		return err
	}
	if _, err := b.Run(cmd.Context(), root); err != nil {
		return err
	}
	doc, err := export.HTMLBytes(root)
	if err != nil {
		return err
	}

	r := snapshot.NewRenderer(snapshot.Config{
		RemoteURL: cfg.ChromeURL,
		Width:     cfg.SnapshotWidth,
		Height:    cfg.SnapshotHeight,
		Logger:    log,
	})
	defer r.Close()

	img, err := r.Capture(cmd.Context(), doc)
	if err != nil {
		return err
	}
	if snapshotTransparent {
		if img, err = snapshot.WhiteToTransparent(img); err != nil {
			return err
		}
	}
	if err := os.WriteFile(snapshotOut, img, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", snapshotOut, err)
	}
	fmt.Printf("wrote %s (%d bytes)\n", snapshotOut, len(img))
	return nil
}
