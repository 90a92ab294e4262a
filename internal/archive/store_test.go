package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/AntonyPalsh/downlog/internal/testutils"
)

func openMem(t *testing.T, maxSize int64) (*Store, *blob.Bucket) {
	t.Helper()
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return NewStore(bucket, maxSize), bucket
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	store, bucket := openMem(t, 0)

	data := testutils.MakeZip(t, map[string]string{"catalina.log": "started"})
	n, err := store.Save(ctx, "preprod-node1-catalina.zip", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("expected %d bytes written, got %d", len(data), n)
	}

	got, err := bucket.ReadAll(ctx, "preprod-node1-catalina.zip")
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("stored data does not match")
	}
}

func TestSaveTooLarge(t *testing.T) {
	ctx := context.Background()
	store, bucket := openMem(t, 10)

	_, err := store.Save(ctx, "big.zip", strings.NewReader(strings.Repeat("x", 11)))
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}

	exists, err := bucket.Exists(ctx, "big.zip")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("oversized archive must not be stored")
	}

	// Exactly at the limit is fine.
	if _, err := store.Save(ctx, "fits.zip", strings.NewReader(strings.Repeat("x", 10))); err != nil {
		t.Errorf("Save at limit: %v", err)
	}
}

type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }

func TestSaveReadErrorLeavesNothing(t *testing.T) {
	ctx := context.Background()
	store, bucket := openMem(t, 0)

	readErr := errors.New("connection reset")
	_, err := store.Save(ctx, "broken.zip", io.MultiReader(strings.NewReader("PK"), failingReader{readErr}))
	if !errors.Is(err, readErr) {
		t.Fatalf("expected read error, got %v", err)
	}

	exists, _ := bucket.Exists(ctx, "broken.zip")
	if exists {
		t.Error("failed write must not leave an object")
	}
}

func TestListVerifyDelete(t *testing.T) {
	ctx := context.Background()
	store, _ := openMem(t, 0)

	good := testutils.MakeZip(t, map[string]string{"a.log": "a", "b.log": "b"})
	if _, err := store.Save(ctx, "preprod-node1-catalina.zip", bytes.NewReader(good)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save(ctx, "preprod-node2-catalina.zip", strings.NewReader("not a zip")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save(ctx, "stage-node1-universe.zip", bytes.NewReader(good)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	infos, err := store.List(ctx, "preprod-")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 archives, got %d", len(infos))
	}
	if infos[0].Key != "preprod-node1-catalina.zip" || infos[0].Size != int64(len(good)) {
		t.Errorf("unexpected first entry %+v", infos[0])
	}

	entries, err := store.Verify(ctx, "preprod-node1-catalina.zip")
	if err != nil {
		t.Errorf("Verify good archive: %v", err)
	}
	if entries != 2 {
		t.Errorf("expected 2 entries, got %d", entries)
	}

	if _, err := store.Verify(ctx, "preprod-node2-catalina.zip"); !errors.Is(err, ErrNotZip) {
		t.Errorf("expected ErrNotZip, got %v", err)
	}
	if _, err := store.Verify(ctx, "missing.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, "preprod-node2-catalina.zip"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "preprod-node2-catalina.zip"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	infos, err = store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Errorf("expected 2 archives after delete, got %d", len(infos))
	}
}

func TestOpenLocalDirectory(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "downloads", "nested")

	store, err := Open(ctx, dir, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if _, err := store.Save(ctx, "node1-files.zip", strings.NewReader("PK")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "node1-files.zip"))
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if string(data) != "PK" {
		t.Errorf("unexpected file content %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "node1-files.zip.attrs")); !os.IsNotExist(err) {
		t.Error("expected no metadata sidecar next to the archive")
	}
}

func TestOpenBucketURL(t *testing.T) {
	store, err := Open(context.Background(), "mem://", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := Open(context.Background(), "nosuchscheme://bucket", 0); err == nil {
		t.Error("expected error for unknown scheme")
	}
}

func TestVerifySpoolsToDisk(t *testing.T) {
	ctx := context.Background()
	spool := t.TempDir()
	t.Setenv("TMPDIR", spool)

	store, _ := openMem(t, 4096)

	good := testutils.MakeZip(t, map[string]string{"catalina.out": strings.Repeat("line\n", 100)})
	if _, err := store.Save(ctx, "good.zip", bytes.NewReader(good)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Save(ctx, "bad.zip", strings.NewReader("not a zip")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if n, err := store.Verify(ctx, "good.zip"); err != nil || n != 1 {
		t.Errorf("Verify good.zip = %d, %v", n, err)
	}
	if _, err := store.Verify(ctx, "bad.zip"); !errors.Is(err, ErrNotZip) {
		t.Errorf("expected ErrNotZip, got %v", err)
	}

	// Archives above the limit are rejected without reading past it.
	big := NewStore(store.bucket, 16)
	if _, err := big.Verify(ctx, "good.zip"); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	left, err := os.ReadDir(spool)
	if err != nil {
		t.Fatalf("read spool dir: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("expected spool files to be removed, found %d", len(left))
	}
}
