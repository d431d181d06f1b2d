// Package weights resolves stage model snapshots to local directories.
// First use fetches the snapshot archive from its remote reference;
// afterwards the cached copy is used. Fetches are idempotent and resume
// partial downloads.
package weights

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"autoedit/pkg/types"
)

const (
	completeMarker = ".complete"
	partialSuffix  = ".partial"
)

// Fetcher downloads and caches model snapshots keyed by model id.
type Fetcher struct {
	cacheDir string
	client   *http.Client
	// resolveURL maps a snapshot ref to a downloadable archive URL.
	resolveURL func(ref string) string
}

// NewFetcher creates a Fetcher rooted at cacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	return &Fetcher{
		cacheDir:   cacheDir,
		client:     http.DefaultClient,
		resolveURL: defaultResolveURL,
	}
}

// WithClient overrides the HTTP client (tests).
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// WithResolver overrides ref-to-URL resolution (tests, mirrors).
func (f *Fetcher) WithResolver(fn func(ref string) string) *Fetcher {
	f.resolveURL = fn
	return f
}

func defaultResolveURL(ref string) string {
	if strings.Contains(ref, "://") {
		return ref
	}
	return "https://huggingface.co/" + ref + "/resolve/main/snapshot.tar"
}

// Dir returns the local snapshot directory for a model id.
func (f *Fetcher) Dir(modelID string) string {
	return filepath.Join(f.cacheDir, modelID)
}

// Ensure makes the snapshot for model locally available and returns its
// directory. A model without a remote ref is assumed locally managed: its
// directory is created and returned as-is.
func (f *Fetcher) Ensure(ctx context.Context, model types.StageModel) (string, error) {
	dir := f.Dir(model.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("snapshot dir: %w", err)
	}
	if model.Ref == "" {
		return dir, nil
	}
	marker := filepath.Join(dir, completeMarker)
	if _, err := os.Stat(marker); err == nil {
		return dir, nil
	}
	if err := f.download(ctx, model.Ref, filepath.Join(dir, "snapshot.tar")); err != nil {
		return "", fmt.Errorf("fetch %s: %w", model.ID, err)
	}
	if err := os.WriteFile(marker, []byte(model.Ref+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write marker: %w", err)
	}
	return dir, nil
}

// download streams the archive to dest, resuming a previous partial file
// via a Range request when the server supports it.
func (f *Fetcher) download(ctx context.Context, ref, dest string) error {
	partial := dest + partialSuffix
	var offset int64
	if fi, err := os.Stat(partial); err == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.resolveURL(ref), nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(offset, 10)+"-")
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the range; restart from scratch.
		offset = 0
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		// Partial file already holds the full payload.
		return os.Rename(partial, dest)
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	out, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Rename(partial, dest)
}
