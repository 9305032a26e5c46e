package aria2

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Status is the daemon-reported task state.
type Status string

const (
	StatusActive   Status = "active"
	StatusWaiting  Status = "waiting"
	StatusPaused   Status = "paused"
	StatusError    Status = "error"
	StatusComplete Status = "complete"
	StatusRemoved  Status = "removed"
)

// IsTerminal reports whether the task has stopped for good.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusError, StatusComplete, StatusRemoved:
		return true
	default:
		return false
	}
}

// Task is one download as reported by tellActive/tellWaiting/tellStopped.
// aria2 encodes every number as a decimal string.
type Task struct {
	GID             string      `json:"gid"`
	Status          Status      `json:"status"`
	TotalLength     int64       `json:"totalLength,string"`
	CompletedLength int64       `json:"completedLength,string"`
	DownloadSpeed   int64       `json:"downloadSpeed,string"`
	UploadSpeed     int64       `json:"uploadSpeed,string"`
	Connections     int         `json:"connections,string"`
	Dir             string      `json:"dir"`
	Files           []File      `json:"files"`
	BitTorrent      *BitTorrent `json:"bittorrent,omitempty"`
	InfoHash        string      `json:"infoHash,omitempty"`
	ErrorCode       string      `json:"errorCode,omitempty"`
	ErrorMessage    string      `json:"errorMessage,omitempty"`
	FollowedBy      []string    `json:"followedBy,omitempty"`
}

// File is one entry in a task's ordered file list.
type File struct {
	Index           int    `json:"index,string"`
	Path            string `json:"path"`
	Length          int64  `json:"length,string"`
	CompletedLength int64  `json:"completedLength,string"`
	Selected        string `json:"selected"`
	URIs            []URI  `json:"uris"`
}

// URI is a source URI of a file.
type URI struct {
	URI    string `json:"uri"`
	Status string `json:"status"`
}

// BitTorrent carries torrent metadata when the task is a torrent.
type BitTorrent struct {
	Mode string          `json:"mode,omitempty"`
	Info *BitTorrentInfo `json:"info,omitempty"`
}

// BitTorrentInfo holds the torrent's display name.
type BitTorrentInfo struct {
	Name string `json:"name"`
}

// IsTorrent reports whether the task carries BitTorrent information.
func (t Task) IsTorrent() bool {
	return t.BitTorrent != nil || t.InfoHash != ""
}

// PrimaryPath returns the first file path, or "" when metadata is not known yet.
func (t Task) PrimaryPath() string {
	for _, f := range t.Files {
		if strings.TrimSpace(f.Path) != "" {
			return f.Path
		}
	}
	return ""
}

// Name returns a display name: torrent name, first file's base name, first
// source URI, or the gid as a last resort.
func (t Task) Name() string {
	if t.BitTorrent != nil && t.BitTorrent.Info != nil && t.BitTorrent.Info.Name != "" {
		return t.BitTorrent.Info.Name
	}
	if path := t.PrimaryPath(); path != "" {
		return filepath.Base(path)
	}
	for _, f := range t.Files {
		for _, u := range f.URIs {
			if u.URI != "" {
				return u.URI
			}
		}
	}
	return t.GID
}

// Version is the daemon's getVersion response.
type Version struct {
	Version         string   `json:"version"`
	EnabledFeatures []string `json:"enabledFeatures"`
}

// AddOptions are per-download options passed to addUri.
type AddOptions struct {
	Dir string
	Out string
}

func (o AddOptions) params() map[string]string {
	opts := map[string]string{}
	if o.Dir != "" {
		opts["dir"] = o.Dir
	}
	if o.Out != "" {
		opts["out"] = o.Out
	}
	return opts
}

// RPCError is an error object returned by the daemon.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("aria2 rpc error %d: %s", e.Code, e.Message)
}
