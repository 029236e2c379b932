// Package uipack prepares web UI sources for embedding.
//
// It minifies JavaScript, CSS and HTML sources and writes two outputs per
// file into the target directory: the minified asset (<name>.min.<ext>)
// and its gzip-compressed sibling (<name>.min.<ext>.gz). The assets
// package loads exactly this layout, so running the pipeline and
// rebuilding the server is the whole deployment story for UI changes.
//
// Sources that already carry a .min. infix are treated as pre-minified
// and passed through untouched; the pipeline never rewrites them in
// place. In directory mode a .min. file is skipped entirely when its
// plain original sits next to it, since the original will be processed.
package uipack
