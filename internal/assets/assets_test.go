package assets

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
)

func TestLoad_EmbeddedBundle(t *testing.T) {
	bundle, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, want := range []string{"/index.min.html", "/slider.min.js", "/panel.min.js", "/style.min.css"} {
		if _, ok := bundle.Get(want); !ok {
			t.Errorf("bundle missing asset %s", want)
		}
	}
}

// The checked-in .gz siblings must decompress to exactly the plain files.
// This is the one property the whole bundle format rests on.
func TestLoad_GzipRoundTrip(t *testing.T) {
	bundle, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	for _, p := range bundle.Paths() {
		asset, _ := bundle.Get(p)

		decompressed, err := decompress(asset.Gzip)
		if err != nil {
			t.Fatalf("asset %s: decompress error = %v", p, err)
		}
		if !bytes.Equal(decompressed, asset.Body) {
			t.Errorf("asset %s: gzip decompresses to %d bytes, plain is %d bytes",
				p, len(decompressed), len(asset.Body))
		}
	}
}

func TestLoad_SliderScriptContent(t *testing.T) {
	bundle, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	slider, ok := bundle.Get("/slider.min.js")
	if !ok {
		t.Fatal("slider.min.js not in bundle")
	}

	if slider.ContentType != "application/javascript" {
		t.Errorf("slider ContentType = %q, want application/javascript", slider.ContentType)
	}
	if !strings.Contains(string(slider.Body), "rkmd_rangeSlider") {
		t.Error("slider script missing rkmd_rangeSlider entry point")
	}
	if !strings.Contains(string(slider.Body), "slvalue:") {
		t.Error("slider script missing slvalue frame prefix")
	}
}

func TestBundle_GetRootResolvesIndex(t *testing.T) {
	bundle, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	root, ok := bundle.Get("/")
	if !ok {
		t.Fatal("Get(/) returned no asset")
	}
	index, _ := bundle.Get("/index.min.html")
	if root != index {
		t.Error("Get(/) should resolve to index.min.html")
	}
}

func TestLoadFS_CompressesMissingSiblings(t *testing.T) {
	fsys := fstest.MapFS{
		"app.js": {Data: []byte("console.log('hello')")},
	}

	bundle, err := loadFS(fsys)
	if err != nil {
		t.Fatalf("loadFS() error = %v", err)
	}

	asset, ok := bundle.Get("/app.js")
	if !ok {
		t.Fatal("app.js not loaded")
	}
	if len(asset.Gzip) == 0 {
		t.Fatal("missing gzip representation for asset without .gz sibling")
	}

	decompressed, err := decompress(asset.Gzip)
	if err != nil {
		t.Fatalf("decompress error = %v", err)
	}
	if !bytes.Equal(decompressed, asset.Body) {
		t.Error("generated gzip does not round-trip to plain content")
	}
}

func TestVerify_DetectsMismatchedSibling(t *testing.T) {
	// A .gz sibling that decompresses to different content must fail
	// verification: serving it would hand gzip clients different bytes
	// than identity clients.
	wrong, err := compress([]byte("something else entirely"))
	if err != nil {
		t.Fatalf("compress error = %v", err)
	}

	fsys := fstest.MapFS{
		"app.js":    {Data: []byte("console.log('hello')")},
		"app.js.gz": {Data: wrong},
	}

	bundle, err := loadFS(fsys)
	if err != nil {
		t.Fatalf("loadFS() error = %v", err)
	}

	if err := bundle.Verify(); err == nil {
		t.Error("Verify() accepted a mismatched .gz sibling")
	}
}

func TestVerify_DetectsCorruptSibling(t *testing.T) {
	fsys := fstest.MapFS{
		"app.js":    {Data: []byte("console.log('hello')")},
		"app.js.gz": {Data: []byte("not gzip data at all")},
	}

	bundle, err := loadFS(fsys)
	if err != nil {
		t.Fatalf("loadFS() error = %v", err)
	}

	if err := bundle.Verify(); err == nil {
		t.Error("Verify() accepted a corrupt .gz sibling")
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"slider.min.js", "application/javascript"},
		{"style.min.css", "text/css; charset=utf-8"},
		{"index.min.html", "text/html; charset=utf-8"},
		{"manifest.json", "application/json"},
		{"logo.svg", "image/svg+xml"},
		{"favicon.ico", "image/x-icon"},
		{"blob.bin", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := contentTypeFor(tt.name); got != tt.want {
				t.Errorf("contentTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestETagFor_Deterministic(t *testing.T) {
	a := etagFor([]byte("content"))
	b := etagFor([]byte("content"))
	c := etagFor([]byte("different"))

	if a != b {
		t.Error("same content produced different ETags")
	}
	if a == c {
		t.Error("different content produced identical ETags")
	}
	if !strings.HasPrefix(a, `"`) || !strings.HasSuffix(a, `"`) {
		t.Errorf("ETag %q is not quoted", a)
	}
}
