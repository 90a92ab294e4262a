package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

var (
	// ErrNotFound is returned when an archive does not exist in the store.
	ErrNotFound = errors.New("archive: not found")

	// ErrTooLarge is returned by Save when the data exceeds the size limit.
	// Nothing is stored in that case.
	ErrTooLarge = errors.New("archive: exceeds size limit")

	// ErrNotZip is returned by Verify when an object is not a readable ZIP archive.
	ErrNotZip = errors.New("archive: not a valid zip archive")
)

// Info describes a saved archive.
type Info struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Store saves downloaded archives to a bucket.
type Store struct {
	bucket  *blob.Bucket
	maxSize int64
	owned   bool
}

// Open opens the store at location, which is either a gocloud bucket URL
// (s3://, gs://, file://, mem://) or a local directory. A local directory is
// created if it does not exist. maxSize limits the size of a single archive;
// zero means no limit.
func Open(ctx context.Context, location string, maxSize int64) (*Store, error) {
	var (
		bucket *blob.Bucket
		err    error
	)
	if strings.Contains(location, "://") {
		bucket, err = blob.OpenBucket(ctx, location)
	} else {
		if err := os.MkdirAll(location, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		bucket, err = fileblob.OpenBucket(location, &fileblob.Options{
			Metadata: fileblob.MetadataDontWrite,
			// Temp files next to the archives, so the rename never
			// crosses a mount point.
			NoTempDir: true,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", location, err)
	}

	return &Store{bucket: bucket, maxSize: maxSize, owned: true}, nil
}

// NewStore wraps an already open bucket. The caller keeps ownership of bucket;
// Close does not close it.
func NewStore(bucket *blob.Bucket, maxSize int64) *Store {
	return &Store{bucket: bucket, maxSize: maxSize}
}

// Close releases the bucket if the store opened it.
func (s *Store) Close() error {
	if s.owned {
		return s.bucket.Close()
	}
	return nil
}

// Save copies r into the archive named key and returns the number of bytes
// written. If copying fails or the size limit is exceeded, the write is
// abandoned and no object is created.
func (s *Store) Save(ctx context.Context, key string, r io.Reader) (int64, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := s.bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", key, err)
	}

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}

	n, err := io.Copy(w, src)
	if err == nil && s.maxSize > 0 && n > s.maxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxSize)
	}
	if err != nil {
		// Cancelling before Close discards the partial object.
		cancel()
		w.Close()
		return n, fmt.Errorf("write %s: %w", key, err)
	}

	if err := w.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", key, err)
	}
	return n, nil
}

// List returns the archives whose keys start with prefix, in key order.
func (s *Store) List(ctx context.Context, prefix string) ([]Info, error) {
	var infos []Info
	it := s.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := it.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list archives: %w", err)
		}
		if obj.IsDir {
			continue
		}
		infos = append(infos, Info{Key: obj.Key, Size: obj.Size, ModTime: obj.ModTime})
	}
	return infos, nil
}

// Verify reads the archive named key and checks that it is a ZIP archive
// whose entries all decompress with valid checksums. It returns the number
// of entries. The archive is spooled to a temporary file, not memory.
func (s *Store) Verify(ctx context.Context, key string) (int, error) {
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return 0, mapNotFound(key, err)
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "downlog-verify-*.zip")
	if err != nil {
		return 0, fmt.Errorf("spool %s: %w", key, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	var src io.Reader = r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, src)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return 0, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}

	zr, err := zip.NewReader(tmp, n)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %v", key, ErrNotZip, err)
	}
	for _, f := range zr.File {
		if err := checkEntry(f); err != nil {
			return 0, fmt.Errorf("%s: %w: entry %s: %v", key, ErrNotZip, f.Name, err)
		}
	}
	return len(zr.File), nil
}

// checkEntry decompresses f; the zip reader validates the CRC at EOF.
func checkEntry(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(io.Discard, rc)
	return err
}

// Delete removes the archive named key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.bucket.Delete(ctx, key); err != nil {
		return mapNotFound(key, err)
	}
	return nil
}

func mapNotFound(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", key, err)
}
