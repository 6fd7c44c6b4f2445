package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/badgebind/internal/binder"
	"github.com/dgallion1/badgebind/internal/export"
	"github.com/dgallion1/badgebind/internal/page"
	"github.com/spf13/cobra"
	"golang.org/x/net/html"
)

var (
	bindOut    string
	bindFormat string
	bindStrict bool
)

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Bind the template and write the result",
	Long: "Fetches the data document once and fills every bound element of the template.\n" +
		"If the fetch fails the error is logged and the template is written unchanged.",
	Args: cobra.NoArgs,
	RunE: runBind,
}

func init() {
	bindCmd.Flags().StringVarP(&bindOut, "out", "o", "-", "output file (- for stdout)")
	bindCmd.Flags().StringVarP(&bindFormat, "format", "f", "", "html, md or docx (default: from --out extension, else html)")
	bindCmd.Flags().BoolVar(&bindStrict, "strict", false, "exit non-zero when the fetch fails or a path is missing")
}

func runBind(cmd *cobra.Command, args []string) error {
	cfg := cliConfig()
	log := newLogger()
	b, _, err := newBinder(cfg, log)
	if err != nil {
		return err
	}

	root, err := page.LoadFile(cfg.TemplatePath, b.Attr())
	if err != nil {
		return err
	}
	res, bindErr := b.Run(cmd.Context(), root)
	if bindErr == nil {
		log.Debug("bound", "title", page.Title(root), "bound", res.Bound, "missing", res.Missing)
	}

	if err := writeOutput(root, bindOut, outputFormat(bindFormat, bindOut)); err != nil {
		return err
	}

	if bindStrict {
		if bindErr != nil {
			return bindErr
		}
		if len(res.Missing) > 0 {
			return fmt.Errorf("%d unresolved paths: %s", len(res.Missing), strings.Join(res.Missing, ", "))
		}
	}
	return nil
}

func outputFormat(format, out string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".md", ".markdown":
		return "md"
	case ".docx":
		return "docx"
	}
	return "html"
}

func render(w io.Writer, root *html.Node, format string) error {
	switch format {
	case "html":
		return export.HTML(w, root)
	case "md":
		md, err := export.Markdown(root)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	case "docx":
		return export.DOCX(w, root)
	}
	return fmt.Errorf("unknown format %q", format)
}

// writeOutput renders root in full before touching out, so a failed render
// never leaves a truncated file.
func writeOutput(root *html.Node, out, format string) error {
	var buf bytes.Buffer
	if err := render(&buf, root, format); err != nil {
		return err
	}
	if out == "-" || out == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

// bindOnce loads, binds and writes one output. Used by watch.
func bindOnce(cmd *cobra.Command, b *binder.Binder, template, out, format string) (binder.Result, error) {
	root, err := page.LoadFile(template, b.Attr())
	if err != nil {
		return binder.Result{}, err
	}
	res, bindErr := b.Run(cmd.Context(), root)
	if err := writeOutput(root, out, format); err != nil {
		return res, err
	}
	return res, bindErr
}
