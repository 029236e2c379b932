// Package assets embeds the panel web UI and serves it over HTTP.
//
// Every asset is carried in two representations, mirroring the firmware
// builds this UI originally shipped in: the plain (minified) bytes and a
// pre-compressed gzip sibling (<name>.gz) checked into the bundle. The two
// must decompress to byte-identical content; Verify() enforces this at
// startup so a corrupted bundle fails fast instead of serving garbage.
//
// Assets without a .gz sibling are compressed once at load time. The HTTP
// handler negotiates on Accept-Encoding and serves the gzip bytes with
// Content-Encoding: gzip when the client allows it, falling back to the
// plain bytes otherwise. Strong ETags enable conditional requests.
//
// A development directory can override the embedded bundle so UI work
// doesn't require recompiling the server.
package assets
