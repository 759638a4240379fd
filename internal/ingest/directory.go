package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDirectory lists accepted files under root in lexical order, skipping
// hidden files and directories if requested.
func ScanDirectory(root string, skipHidden bool) ([]string, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root_path is required")
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			return nil // continue walking
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)
	return paths, stats, nil
}

// IngestDirectory scans root and runs every match through IngestPath. A
// failing file is recorded and the walk continues; only cancellation stops it.
func (u *Usecase) IngestDirectory(ctx context.Context, root string, skipHidden, force bool) ([]FileResult, DirStats, error) {
	paths, stats, err := ScanDirectory(root, skipHidden)
	if err != nil {
		return nil, stats, err
	}
	results := make([]FileResult, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, stats, err
		}
		res, err := u.IngestPath(ctx, p, force)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, stats, ctxErr
			}
			res.Err = err.Error()
			stats.Failed++
			u.Log.Error("ingest.file.failed", "path", p, "error", err)
		} else {
			stats.Succeeded++
			if res.Deduplicated {
				stats.Deduplicated++
			}
		}
		results = append(results, res)
	}
	u.Log.Info("ingest.directory.done",
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed)
	return results, stats, nil
}
