package assets

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

//go:embed web/*
var content embed.FS

// gzipSuffix marks the pre-compressed sibling of an asset file.
const gzipSuffix = ".gz"

// etagBytes is the number of hash bytes used for the ETag.
const etagBytes = 16

// Asset is a single immutable UI resource in both representations.
type Asset struct {
	// Path is the URL path the asset is served under, e.g. "/slider.min.js".
	Path string

	// ContentType is the MIME type sent in the Content-Type header.
	ContentType string

	// Body is the plain (identity-encoded) bytes.
	Body []byte

	// Gzip is the compressed representation. It always decompresses to
	// exactly Body; Verify() checks this invariant.
	Gzip []byte

	// ETag is a strong validator derived from Body.
	ETag string
}

// Bundle is an immutable set of assets resolved by URL path.
// The root path "/" resolves to index.min.html.
type Bundle struct {
	assets map[string]*Asset
}

// Load builds the bundle from the embedded web directory and verifies
// the gzip round-trip invariant for every asset.
//
// Returns:
//   - *Bundle: Verified bundle ready to serve
//   - error: If the embedded FS is unreadable or any .gz sibling does not
//     decompress to its plain counterpart
func Load() (*Bundle, error) {
	sub, err := fs.Sub(content, "web")
	if err != nil {
		return nil, fmt.Errorf("opening embedded web assets: %w", err)
	}

	b, err := loadFS(sub)
	if err != nil {
		return nil, err
	}

	if err := b.Verify(); err != nil {
		return nil, err
	}
	return b, nil
}

// loadFS reads every non-.gz file in fsys as an asset, pairing it with its
// .gz sibling when present and compressing it otherwise.
func loadFS(fsys fs.FS) (*Bundle, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading asset directory: %w", err)
	}

	b := &Bundle{assets: make(map[string]*Asset)}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, gzipSuffix) {
			continue
		}

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("reading asset %s: %w", name, err)
		}

		asset := &Asset{
			Path:        "/" + name,
			ContentType: contentTypeFor(name),
			Body:        body,
			ETag:        etagFor(body),
		}

		// Prefer the checked-in pre-compressed sibling; compress once
		// at load time when it's absent.
		gz, err := fs.ReadFile(fsys, name+gzipSuffix)
		switch {
		case err == nil:
			asset.Gzip = gz
		default:
			asset.Gzip, err = compress(body)
			if err != nil {
				return nil, fmt.Errorf("compressing asset %s: %w", name, err)
			}
		}

		b.assets[asset.Path] = asset
	}

	return b, nil
}

// Get resolves an asset by URL path. The root path "/" resolves to the
// panel index page.
func (b *Bundle) Get(urlPath string) (*Asset, bool) {
	p := path.Clean(urlPath)
	if p == "/" || p == "." {
		p = "/index.min.html"
	}
	a, ok := b.assets[p]
	return a, ok
}

// Paths returns the URL paths of all assets in the bundle, sorted.
func (b *Bundle) Paths() []string {
	paths := make([]string, 0, len(b.assets))
	for p := range b.assets {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of assets in the bundle.
func (b *Bundle) Len() int {
	return len(b.assets)
}

// Verify checks that every asset's gzip representation decompresses to
// bytes identical to its plain representation.
//
// Returns:
//   - error: Naming the first asset that fails the invariant, or nil
func (b *Bundle) Verify() error {
	for _, asset := range b.assets {
		decompressed, err := decompress(asset.Gzip)
		if err != nil {
			return fmt.Errorf("asset %s: decompressing gzip representation: %w", asset.Path, err)
		}
		if !bytes.Equal(decompressed, asset.Body) {
			return fmt.Errorf("asset %s: gzip representation does not match plain content (%d vs %d bytes)",
				asset.Path, len(decompressed), len(asset.Body))
		}
	}
	return nil
}

// compress gzips data at the best compression level. Assets compress once
// per process lifetime, so CPU cost is irrelevant next to transfer size.
func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompress gunzips data fully into memory.
func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck // Read error surfaces via ReadAll

	return io.ReadAll(r)
}

// contentTypeFor maps an asset filename to its MIME type.
// The slider script and friends must go out as application/javascript.
func contentTypeFor(name string) string {
	switch path.Ext(name) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// etagFor derives a strong ETag from the asset body.
func etagFor(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:etagBytes]) + `"`
}
