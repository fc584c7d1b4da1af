package materialize

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/agentpkg/assetgraph/pkg/catalog"
	"github.com/agentpkg/assetgraph/pkg/filetype"
	"github.com/agentpkg/assetgraph/pkg/store"
	"github.com/go-logr/logr"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	os.MkdirAll(filepath.Dir(path), 0o755)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDirEnsure(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "forest", "Assets", "main.prefab"), "%YAML")
	writeFile(t, filepath.Join(root, "forest", "Assets", "main.prefab.meta"), "guid: x")
	writeFile(t, filepath.Join(root, "single", "Rock.fbx"), "fbx")
	writeFile(t, filepath.Join(root, "single", "Rock.fbx.meta"), "meta")

	pkg := catalog.Asset{ID: 1, Location: "forest"}
	single := catalog.Asset{ID: 2, Location: "single/Rock.fbx", Kind: catalog.KindSingleFile}
	main := catalog.AssetFile{Path: "Assets/main.prefab", Type: filetype.Prefab}

	tests := map[string]struct {
		asset   catalog.Asset
		file    *catalog.AssetFile
		want    string
		wantErr error
	}{
		"package file": {
			asset: pkg, file: &main,
			want: filepath.Join(root, "forest", "Assets", "main.prefab"),
		},
		"sidecar": {
			asset: pkg, file: func() *catalog.AssetFile { s := main.Sidecar(); return &s }(),
			want: filepath.Join(root, "forest", "Assets", "main.prefab.meta"),
		},
		"missing file": {
			asset: pkg, file: &catalog.AssetFile{Path: "Assets/none.mat"},
			wantErr: ErrNotAvailable,
		},
		"directory is not a file": {
			asset:   pkg,
			wantErr: ErrNotAvailable,
		},
		"single file asset": {
			asset: single,
			want:  filepath.Join(root, "single", "Rock.fbx"),
		},
		"single file sidecar": {
			asset: single, file: &catalog.AssetFile{Path: "Rock.fbx.meta", Type: filetype.Meta},
			want: filepath.Join(root, "single", "Rock.fbx.meta"),
		},
		"no location": {
			asset:   catalog.Asset{ID: 3},
			wantErr: ErrNotAvailable,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := &Dir{Root: root}
			got, err := d.Ensure(context.Background(), tc.asset, tc.file, false)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Ensure() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Ensure() error = %v", err)
			}
			if got != tc.want {
				t.Errorf("Ensure() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDirEnsureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := &Dir{Root: t.TempDir()}
	if _, err := d.Ensure(ctx, catalog.Asset{Location: "x"}, nil, false); !errors.Is(err, context.Canceled) {
		t.Errorf("Ensure() error = %v, want context.Canceled", err)
	}
}

func TestArchiveEnsureLocal(t *testing.T) {
	root := t.TempDir()
	writeZip(t, filepath.Join(root, "forest.zip"), map[string]string{
		"Forest/Assets/main.prefab": "%YAML main",
		"Forest/Assets/b.mat":       "%YAML b",
	})

	a := &Archive{Cache: store.New(t.TempDir()), Root: root, Log: logr.Discard()}
	asset := catalog.Asset{ID: 1, Location: "forest.zip"}

	got, err := a.Ensure(context.Background(), asset, &catalog.AssetFile{Path: "Assets/b.mat"}, false)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	data, _ := os.ReadFile(got)
	if string(data) != "%YAML b" {
		t.Errorf("extracted content = %q", data)
	}

	again, err := a.Ensure(context.Background(), asset, &catalog.AssetFile{Path: "Assets/b.mat"}, false)
	if err != nil || again != got {
		t.Errorf("second Ensure() = %q, %v; want cached %q", again, err, got)
	}

	if _, err := a.Ensure(context.Background(), asset, &catalog.AssetFile{Path: "Assets/none.mat"}, false); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Ensure(missing) error = %v, want ErrNotAvailable", err)
	}
}

func TestArchiveEnsureRejectsEscapingEntries(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "src")
	cacheDir := filepath.Join(base, "deep", "cache")
	os.MkdirAll(root, 0o755)

	tests := map[string]struct {
		entries map[string]string
		file    *catalog.AssetFile
	}{
		"parent traversal": {
			entries: map[string]string{"../../../../../escaped/a.mat": "%YAML evil"},
			file:    &catalog.AssetFile{Path: "escaped/a.mat"},
		},
		"absolute name": {
			entries: map[string]string{"/escaped/b.mat": "%YAML evil"},
			file:    &catalog.AssetFile{Path: "escaped/b.mat"},
		},
		"first member": {
			entries: map[string]string{"../escaped/c.mat": "%YAML evil"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			zipName := filepath.Base(t.Name()) + ".zip"
			writeZip(t, filepath.Join(root, zipName), tc.entries)
			a := &Archive{Cache: store.New(cacheDir), Root: root, Log: logr.Discard()}
			asset := catalog.Asset{ID: 1, Location: zipName}

			got, err := a.Ensure(context.Background(), asset, tc.file, false)
			if !errors.Is(err, ErrNotAvailable) {
				t.Fatalf("Ensure() = %q, %v; want ErrNotAvailable", got, err)
			}
			if _, err := os.Stat(filepath.Join(base, "escaped")); !os.IsNotExist(err) {
				t.Errorf("entry extracted outside the cache (stat error = %v)", err)
			}
		})
	}
}

func TestArchiveEnsureRemote(t *testing.T) {
	src := filepath.Join(t.TempDir(), "remote.zip")
	writeZip(t, src, map[string]string{"Assets/a.mat": "%YAML a"})
	payload, _ := os.ReadFile(src)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.URL.Path != "/pkg.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	defer srv.Close()

	a := &Archive{Cache: store.New(t.TempDir()), Client: srv.Client(), Log: logr.Discard()}
	asset := catalog.Asset{ID: 9, Location: srv.URL + "/pkg.zip"}
	file := &catalog.AssetFile{Path: "Assets/a.mat"}

	if _, err := a.Ensure(context.Background(), asset, file, false); !errors.Is(err, ErrDownloadNotAllowed) {
		t.Fatalf("Ensure() without download error = %v, want ErrDownloadNotAllowed", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatal("server hit without download permission")
	}

	got, err := a.Ensure(context.Background(), asset, file, true)
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	data, _ := os.ReadFile(got)
	if string(data) != "%YAML a" {
		t.Errorf("content = %q", data)
	}

	// Once downloaded, the archive is served from the cache even without
	// download permission.
	if _, err := a.Ensure(context.Background(), asset, file, false); err != nil {
		t.Errorf("cached Ensure() error = %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}

	missing := catalog.Asset{ID: 10, Location: srv.URL + "/gone.zip"}
	if _, err := a.Ensure(context.Background(), missing, file, true); !errors.Is(err, ErrNotAvailable) {
		t.Errorf("Ensure(404) error = %v, want ErrNotAvailable", err)
	}
}

func TestMuxRoutes(t *testing.T) {
	tests := map[string]struct {
		location string
		archive  bool
	}{
		"directory":   {location: "packages/forest", archive: false},
		"zip":         {location: "packages/forest.ZIP", archive: true},
		"remote":      {location: "https://example.com/forest", archive: true},
		"plain http":  {location: "http://example.com/forest.zip", archive: true},
		"single file": {location: "rock.fbx", archive: false},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := &recorder{}
			arc := &recorder{}
			m := &Mux{Dir: dir, Archive: arc}
			m.Ensure(context.Background(), catalog.Asset{Location: tc.location}, nil, false)
			if (arc.calls.Load() == 1) != tc.archive || (dir.calls.Load() == 1) == tc.archive {
				t.Errorf("archive calls = %d, dir calls = %d, want archive = %v", arc.calls.Load(), dir.calls.Load(), tc.archive)
			}
		})
	}
}

type recorder struct {
	calls atomic.Int32
	delay time.Duration
}

func (r *recorder) Ensure(ctx context.Context, asset catalog.Asset, file *catalog.AssetFile, allowDownload bool) (string, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	return "/local/" + asset.Location, nil
}

func TestSharedCollapsesConcurrentCalls(t *testing.T) {
	next := &recorder{delay: 100 * time.Millisecond}
	s := NewShared(next)
	asset := catalog.Asset{ID: 1, Location: "forest"}
	file := &catalog.AssetFile{Path: "Assets/a.mat"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Ensure(context.Background(), asset, file, false)
			if err != nil {
				t.Errorf("Ensure() error: %v", err)
			}
			if got != "/local/forest" {
				t.Errorf("got %q", got)
			}
		}()
	}
	wg.Wait()

	if n := next.calls.Load(); n != 1 {
		t.Errorf("got %d calls, want 1", n)
	}
}

func TestSharedHonorsCancellation(t *testing.T) {
	s := NewShared(&recorder{delay: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Ensure(ctx, catalog.Asset{ID: 1}, nil, false); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Ensure() error = %v, want DeadlineExceeded", err)
	}
}
