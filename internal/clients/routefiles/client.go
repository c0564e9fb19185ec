package routefiles

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// ErrNotFound is matched when a route file does not exist at the source
var ErrNotFound = errors.New("route file not found")

// maxFileSize caps a single route file download
const maxFileSize = 32 << 20

// ErrTooLarge is wrapped by the FetchError for a file over the size limit
var ErrTooLarge = errors.New("route file exceeds size limit")

// FetchError describes a failed fetch that is not a simple absence
type FetchError struct {
	Name       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.Name, e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Source retrieves route files and the manifest by name
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// HTTPDoer is the subset of *http.Client the HTTP source needs
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource fetches route files relative to a base URL
type HTTPSource struct {
	baseURL    *url.URL
	httpClient HTTPDoer
	maxBytes   int64
}

// NewHTTPSource creates a source rooted at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration) (*HTTPSource, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return NewHTTPSourceWithHTTPDoer(baseURL, &http.Client{Timeout: timeout})
}

// NewHTTPSourceWithHTTPDoer creates a source that sends requests through doer
func NewHTTPSourceWithHTTPDoer(baseURL string, doer HTTPDoer) (*HTTPSource, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &HTTPSource{baseURL: u, httpClient: doer, maxBytes: maxFileSize}, nil
}

// Fetch downloads name. A 404 is reported as ErrNotFound and a body over the
// size limit as a FetchError wrapping ErrTooLarge.
func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	requestURL := s.baseURL.ResolveReference(&url.URL{Path: name}).String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, &FetchError{Name: name, URL: requestURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Name: name, URL: requestURL, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode >= 400 {
		return nil, &FetchError{Name: name, URL: requestURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Name: name, URL: requestURL, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if int64(len(data)) > s.maxBytes {
		return nil, &FetchError{Name: name, URL: requestURL, Err: fmt.Errorf("%w (%d bytes)", ErrTooLarge, s.maxBytes)}
	}
	return data, nil
}

// DirSource reads route files from a file system
type DirSource struct {
	fsys fs.FS
}

// NewDirSource reads route files from the directory dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{fsys: os.DirFS(dir)}
}

// NewFSSource reads route files from fsys
func NewFSSource(fsys fs.FS) *DirSource {
	return &DirSource{fsys: fsys}
}

// Fetch reads name. A missing file is reported as ErrNotFound.
func (s *DirSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(clean) {
		return nil, &FetchError{Name: name, Err: fs.ErrInvalid}
	}

	data, err := fs.ReadFile(s.fsys, clean)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	return data, nil
}

// ReadLink returns the first non-empty line of a .url companion file, or ""
// when the file is absent
func ReadLink(ctx context.Context, src Source, name string) (string, error) {
	data, err := src.Fetch(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line, nil
		}
	}
	return "", nil
}

// Exists checks for name without treating absence as an error
func Exists(ctx context.Context, src Source, name string) (bool, error) {
	_, err := src.Fetch(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
