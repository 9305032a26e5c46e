// Package textutil provides filename sanitization for names derived from
// remote metadata (video titles, torrent names) before they reach the
// download directory.
package textutil
