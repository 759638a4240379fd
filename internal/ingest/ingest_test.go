package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/extract"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func tree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, p := range []string{
		"b.pdf",
		"a.PDF",
		"notes.txt",
		".hidden.pdf",
		"sub/c.pdf",
		".cache/d.pdf",
	} {
		touch(t, filepath.Join(root, p))
	}
	return root
}

func TestScanDirectory(t *testing.T) {
	root := tree(t)
	tests := []struct {
		name       string
		skipHidden bool
		want       []string
	}{
		{"skip hidden", true, []string{"a.PDF", "b.pdf", "sub/c.pdf"}},
		{"include hidden", false, []string{".cache/d.pdf", ".hidden.pdf", "a.PDF", "b.pdf", "sub/c.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, stats, err := ScanDirectory(root, tt.skipHidden)
			if err != nil {
				t.Fatalf("ScanDirectory() error = %v", err)
			}
			var rel []string
			for _, p := range paths {
				r, _ := filepath.Rel(root, p)
				rel = append(rel, filepath.ToSlash(r))
			}
			if diff := cmp.Diff(tt.want, rel); diff != "" {
				t.Errorf("ScanDirectory() mismatch (-want +got):\n%s", diff)
			}
			if int(stats.Matched) != len(tt.want) {
				t.Errorf("Matched = %d, want %d", stats.Matched, len(tt.want))
			}
		})
	}
}

func TestScanDirectoryErrors(t *testing.T) {
	if _, _, err := ScanDirectory("  ", true); err == nil {
		t.Error("ScanDirectory(blank) error = nil")
	}
	if _, _, err := ScanDirectory(filepath.Join(t.TempDir(), "missing"), true); err == nil {
		t.Error("ScanDirectory(missing) error = nil")
	}
}

type fakeProc struct {
	seen map[string]bool
	fail map[string]bool
	ran  []string
}

func (p *fakeProc) Run(_ context.Context, path string, _ extract.Options) (*entity.DocumentResult, error) {
	p.ran = append(p.ran, filepath.Base(path))
	if p.fail[filepath.Base(path)] {
		return nil, errors.New("unreadable")
	}
	return &entity.DocumentResult{
		Document: entity.Document{ID: uuid.New(), SourcePath: path, ContentHash: "abc"},
		Quality:  entity.QualityReport{OverallScore: 0.5},
	}, nil
}

func (p *fakeProc) Seen(_ context.Context, path string) (*entity.DocumentSummary, bool, error) {
	if p.seen[filepath.Base(path)] {
		return &entity.DocumentSummary{ID: uuid.New(), ContentHash: "old"}, true, nil
	}
	return nil, false, nil
}

func TestIngestDirectory(t *testing.T) {
	root := tree(t)
	proc := &fakeProc{seen: map[string]bool{"a.PDF": true}, fail: map[string]bool{"c.pdf": true}}
	u := NewUsecase(proc, extract.Options{}, nil)

	results, stats, err := u.IngestDirectory(context.Background(), root, true, false)
	if err != nil {
		t.Fatalf("IngestDirectory() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	want := DirStats{Scanned: stats.Scanned, Matched: 3, Succeeded: 2, Deduplicated: 1, Failed: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"b.pdf", "c.pdf"}, proc.ran); diff != "" {
		t.Errorf("ran mismatch (-want +got):\n%s", diff)
	}
	if !results[0].Deduplicated || results[2].Err == "" {
		t.Errorf("results = %+v", results)
	}

	proc.ran = nil
	if _, _, err := u.IngestDirectory(context.Background(), root, true, true); err != nil {
		t.Fatal(err)
	}
	if len(proc.ran) != 3 {
		t.Errorf("forced run extracted %v, want all three", proc.ran)
	}
}

func TestIngestDirectoryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	u := NewUsecase(&fakeProc{}, extract.Options{}, nil)
	if _, _, err := u.IngestDirectory(ctx, tree(t), true, false); !errors.Is(err, context.Canceled) {
		t.Fatalf("IngestDirectory() error = %v, want context.Canceled", err)
	}
}

func next(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case p := <-ch:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher event")
		return ""
	}
}

func TestWatcherInitialScanAndNewFiles(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "existing.pdf"))
	touch(t, filepath.Join(root, "skip.txt"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("StartWatcher() error = %v", err)
	}
	if got := next(t, events); filepath.Base(got) != "existing.pdf" {
		t.Errorf("first event = %s, want existing.pdf", got)
	}

	touch(t, filepath.Join(root, "ignored.txt"))
	touch(t, filepath.Join(root, "new.pdf"))
	if got := next(t, events); filepath.Base(got) != "new.pdf" {
		t.Errorf("event = %s, want new.pdf", got)
	}

	cancel()
	for range events {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}); err == nil {
		t.Fatal("StartWatcher() error = nil, want error")
	}
}

func TestIsHidden(t *testing.T) {
	tests := map[string]bool{
		"/a/.git":    true,
		"/a/b.pdf":   false,
		".":          false,
		"/a/.x.pdf":  true,
		"report.pdf": false,
	}
	for in, want := range tests {
		if got := IsHidden(in); got != want {
			t.Errorf("IsHidden(%q) = %v, want %v", in, got, want)
		}
	}
}
