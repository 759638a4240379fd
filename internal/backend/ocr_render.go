package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// renderPage rasterizes one page to PNG with pdftoppm and returns its path.
// cleanup removes the scratch directory.
func renderPage(ctx context.Context, runner Runner, cfg Config, page Page) (string, func(), error) {
	tmpDir, err := os.MkdirTemp(cfg.TempDir, "rf-pp-*")
	if err != nil {
		return "", func() {}, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page.Number)
	// pdftoppm -f N -l N -r 300 -png -singlefile <in.pdf> <tmp/page>
	_, errb, err := runner.Run(ctx, cfg.Pdftoppm, "-f", n, "-l", n, "-r", strconv.Itoa(cfg.DPI), "-png", "-singlefile", page.Doc.SourcePath, prefix)
	if err != nil {
		cleanup()
		return "", func() {}, &toolError{err: fmt.Errorf("pdftoppm: %w", err), stderr: truncate(string(errb), 512)}
	}
	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("pdftoppm produced no image: %w", err)
	}
	return out, cleanup, nil
}
