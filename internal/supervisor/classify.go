package supervisor

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Kind is the source category of an add-download input.
type Kind string

const (
	KindMagnet  Kind = "magnet"
	KindTorrent Kind = "torrent"
	KindVideo   Kind = "video"
	KindGeneric Kind = "generic"
)

var (
	magnetPattern  = regexp.MustCompile(`(?i)^magnet:\?xt=urn:[a-z0-9]+:[a-z0-9]{32,40}`)
	youTubePattern = regexp.MustCompile(`(?i)^(?:https?://)?(?:www\.|m\.|music\.)?(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|shorts/|embed/|live/)|youtube-nocookie\.com/embed/|youtu\.be/)([A-Za-z0-9_-]{11})`)
)

// videoDomains are registrable domains routed through the extractor.
var videoDomains = map[string]struct{}{
	"youtube.com":          {},
	"youtu.be":             {},
	"youtube-nocookie.com": {},
	"vimeo.com":            {},
	"dailymotion.com":      {},
	"twitch.tv":            {},
	"tiktok.com":           {},
	"twitter.com":          {},
	"x.com":                {},
	"instagram.com":        {},
	"facebook.com":         {},
	"reddit.com":           {},
	"streamable.com":       {},
	"bilibili.com":         {},
	"soundcloud.com":       {},
	"bandcamp.com":         {},
	"rumble.com":           {},
	"odysee.com":           {},
}

// ValidateURL accepts absolute http(s) URLs with a host and magnet URIs whose
// exact topic carries a 32-40 character hash.
func ValidateURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if len(raw) >= 7 && strings.EqualFold(raw[:7], "magnet:") {
		return magnetPattern.MatchString(raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}
	return u.Hostname() != "" && !strings.ContainsAny(raw, " \t\r\n")
}

// Classify categorizes raw. Scheme-less input is treated as https so the
// same host classifies identically with or without a scheme or "www.".
func Classify(raw string) Kind {
	raw = strings.TrimSpace(raw)
	if magnetPattern.MatchString(raw) {
		return KindMagnet
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return KindGeneric
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".torrent") {
		return KindTorrent
	}
	if youTubePattern.MatchString(raw) {
		return KindVideo
	}
	if _, ok := videoDomains[registrableDomain(u.Hostname())]; ok {
		return KindVideo
	}
	return KindGeneric
}

// YouTubeID extracts the video id from a YouTube watch, shorts, embed, live,
// or youtu.be URL.
func YouTubeID(raw string) (string, bool) {
	m := youTubePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func registrableDomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
