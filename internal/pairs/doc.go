// Package pairs records split audio/video downloads so their two tasks can be
// correlated by an explicit id instead of by filename alone.
//
// A pair is written when the supervisor submits the video and audio halves of
// a split download, looked up by either gid during removal, and marked merged
// by the merge watcher. The store is SQLite (modernc.org/sqlite) with an
// embedded, versioned schema; queries are built with squirrel. A nil *Store is
// valid and behaves as an empty registry so callers can run without one.
//
// The filename convention helpers (<base>.video.mp4, <base>.audio.m4a,
// <base>.mp4, and the <path>.aria2 control marker) also live here because
// they are the fallback when no registry entry exists.
package pairs
