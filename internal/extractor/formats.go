package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bobbin/internal/textutil"
)

// Quality selects a format tier.
type Quality string

const (
	QualityBest  Quality = "best"
	Quality1080p Quality = "1080p"
	Quality720p  Quality = "720p"
	QualityAudio Quality = "audio"
)

// ErrNoMatchingFormat reports that no stream satisfied the requested tier.
var ErrNoMatchingFormat = errors.New("no matching format")

// ParseQuality maps user input onto a Quality; empty input means best.
func ParseQuality(value string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(value))); q {
	case "":
		return QualityBest, nil
	case QualityBest, Quality1080p, Quality720p, QualityAudio:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q (want best, 1080p, 720p, or audio)", value)
	}
}

// Media is a resolved download target. For split results URL aliases VideoURL
// and Filename carries no extension.
type Media struct {
	URL      string
	VideoURL string
	AudioURL string
	Filename string
	Split    bool
	Title    string
	ID       string
}

type info struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Formats []format `json:"formats"`
}

type format struct {
	FormatID string `json:"format_id"`
	URL      string `json:"url"`
	Ext      string `json:"ext"`
	VCodec   string `json:"vcodec"`
	ACodec   string `json:"acodec"`
	Height   int    `json:"height"`
	Protocol string `json:"protocol"`
}

func hasCodec(codec string) bool {
	codec = strings.TrimSpace(codec)
	return codec != "" && codec != "none"
}

func (f format) videoOnly() bool { return hasCodec(f.VCodec) && f.ACodec == "none" }

func (f format) audioOnly() bool { return hasCodec(f.ACodec) && f.VCodec == "none" }

func (f format) muxed() bool { return hasCodec(f.VCodec) && hasCodec(f.ACodec) }

// direct reports a plain http(s) stream the daemon can fetch, not a manifest.
func (f format) direct() bool {
	if strings.TrimSpace(f.URL) == "" {
		return false
	}
	switch strings.ToLower(f.Protocol) {
	case "http", "https":
		return true
	case "":
		u, err := url.Parse(f.URL)
		if err != nil {
			return false
		}
		return (u.Scheme == "http" || u.Scheme == "https") && !strings.HasSuffix(u.Path, ".m3u8") && !strings.HasSuffix(u.Path, ".mpd")
	default:
		return false
	}
}

// lastMatch returns the last format satisfying keep; yt-dlp lists formats
// from worst to best.
func lastMatch(formats []format, keep func(format) bool) (format, bool) {
	for i := len(formats) - 1; i >= 0; i-- {
		if keep(formats[i]) {
			return formats[i], true
		}
	}
	return format{}, false
}

func selectMedia(meta info, quality Quality) (Media, error) {
	title := textutil.FileNameOr(meta.Title, meta.ID)
	base := Media{Title: meta.Title, ID: meta.ID}

	switch quality {
	case QualityAudio:
		f, ok := lastMatch(meta.Formats, func(f format) bool { return f.audioOnly() && f.direct() })
		if !ok {
			return Media{}, fmt.Errorf("%w: no audio-only stream", ErrNoMatchingFormat)
		}
		base.URL = f.URL
		base.Filename = title + "." + extOr(f.Ext, "m4a")
		return base, nil

	case Quality720p:
		f, ok := lastMatch(meta.Formats, func(f format) bool {
			return f.muxed() && f.Ext == "mp4" && f.Height > 0 && f.Height <= 720 && f.direct()
		})
		if !ok {
			return Media{}, fmt.Errorf("%w: no muxed mp4 at or below 720p", ErrNoMatchingFormat)
		}
		base.URL = f.URL
		base.Filename = title + ".mp4"
		return base, nil

	default:
		video, vok := lastMatch(meta.Formats, func(f format) bool { return f.videoOnly() && f.Ext == "mp4" && f.direct() })
		audio, aok := lastMatch(meta.Formats, func(f format) bool { return f.audioOnly() && f.Ext == "m4a" && f.direct() })
		if vok && aok {
			base.URL = video.URL
			base.VideoURL = video.URL
			base.AudioURL = audio.URL
			base.Filename = title
			base.Split = true
			return base, nil
		}
		f, ok := lastMatch(meta.Formats, func(f format) bool { return f.muxed() && f.Ext == "mp4" && f.direct() })
		if !ok {
			return Media{}, fmt.Errorf("%w: no separable pair or muxed mp4", ErrNoMatchingFormat)
		}
		base.URL = f.URL
		base.Filename = title + ".mp4"
		return base, nil
	}
}

func extOr(ext, fallback string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return fallback
	}
	return ext
}
