package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"github.com/tsawler/tabula"

	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
)

var rePdfinfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)\s*$`)

// Loader reads documents and resolves their page count.
type Loader struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewLoader(cfg Config, runner Runner, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{Logger: logger}
	}
	return &Loader{cfg: cfg.withDefaults(), runner: runner, logger: logger}
}

// Load reads path once, hashes it and counts pages.
func (l *Loader) Load(ctx context.Context, path string) (*entity.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeDocument, "read "+path, err)
	}
	doc := &entity.Document{
		ID:          uuid.New(),
		SourcePath:  path,
		Filename:    filepath.Base(path),
		ContentHash: HashContent(data),
		SizeBytes:   int64(len(data)),
		Data:        data,
	}
	n, err := l.PageCount(ctx, doc)
	if err != nil {
		return nil, common.NewAppError(common.CodeDocument, "count pages of "+path, errors.Join(common.ErrUnreadable, err))
	}
	doc.PageCount = n
	l.logger.Debug("document loaded", "path", path, "pages", n, "bytes", len(data), "sha256", doc.ContentHash)
	return doc, nil
}

// HashContent is the hex SHA-256 used to recognise a document across runs.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PageCount tries tabula, then ledongthuc/pdf, then pdfinfo.
func (l *Loader) PageCount(ctx context.Context, doc *entity.Document) (int, error) {
	var errs []error

	ext := tabula.Open(doc.SourcePath)
	n, err := ext.PageCount()
	_ = ext.Close()
	if err == nil && n > 0 {
		return n, nil
	}
	errs = append(errs, fmt.Errorf("tabula: %w", orZeroPages(err)))

	n, err = plainPageCount(doc.Data)
	if err == nil && n > 0 {
		return n, nil
	}
	errs = append(errs, fmt.Errorf("pdf: %w", orZeroPages(err)))

	out, _, err := l.runner.Run(ctx, l.cfg.Pdfinfo, doc.SourcePath)
	if err == nil {
		if m := rePdfinfoPages.FindSubmatch(out); m != nil {
			if n, err := strconv.Atoi(string(m[1])); err == nil && n > 0 {
				return n, nil
			}
		}
		err = errors.New("no Pages line")
	}
	errs = append(errs, fmt.Errorf("pdfinfo: %w", err))
	return 0, errors.Join(errs...)
}

func plainPageCount(data []byte) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}

func orZeroPages(err error) error {
	if err == nil {
		return errors.New("zero pages")
	}
	return err
}
