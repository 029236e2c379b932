package assets

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Handler returns an http.Handler serving the bundle.
//
// When devDir is non-empty and the directory exists, assets are served from
// the filesystem instead (dev mode - no recompile needed after UI edits).
// Dev mode serves identity-encoded bytes only; negotiation and ETags apply
// to the embedded bundle, which is what production devices run.
//
// maxAge controls the Cache-Control max-age in seconds; zero or negative
// disables caching entirely (no-cache).
func Handler(bundle *Bundle, devDir string, maxAge int) http.Handler {
	if devDir != "" {
		if info, err := os.Stat(devDir); err == nil && info.IsDir() {
			return devHandler(devDir)
		}
	}

	cacheControl := "no-cache, must-revalidate"
	if maxAge > 0 {
		cacheControl = "public, max-age=" + strconv.Itoa(maxAge)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		asset, ok := bundle.Get(r.URL.Path)
		if !ok {
			http.NotFound(w, r)
			return
		}

		h := w.Header()
		h.Set("Content-Type", asset.ContentType)
		h.Set("Cache-Control", cacheControl)
		h.Set("ETag", asset.ETag)
		h.Set("Vary", "Accept-Encoding")

		// Conditional request: the ETag is strong, so a match means the
		// client already has these exact bytes.
		if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, asset.ETag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		body := asset.Body
		if acceptsGzip(r) {
			h.Set("Content-Encoding", "gzip")
			body = asset.Gzip
		}
		h.Set("Content-Length", strconv.Itoa(len(body)))

		if r.Method == http.MethodHead {
			return
		}
		//nolint:errcheck // Best-effort write; connection may be closed
		w.Write(body)
	})
}

// devHandler serves assets straight from the filesystem for UI development.
func devHandler(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upath := path.Clean(r.URL.Path)
		if upath == "/" || upath == "." {
			upath = "/index.min.html"
		}
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		http.ServeFile(w, r, filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(upath, "/"))))
	})
}

// acceptsGzip reports whether the client accepts gzip content coding.
// A gzip token with q=0 is an explicit refusal.
func acceptsGzip(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if coding != "gzip" && coding != "*" {
			continue
		}
		q := strings.TrimSpace(params)
		if strings.HasPrefix(q, "q=") {
			if val, err := strconv.ParseFloat(q[2:], 64); err == nil && val == 0 {
				return false
			}
		}
		return true
	}
	return false
}

// etagMatches checks an If-None-Match header value against the asset ETag.
// Handles the wildcard and comma-separated candidate lists.
func etagMatches(header, etag string) bool {
	if header == "*" {
		return true
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}
