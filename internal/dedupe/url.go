package dedupe

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/recipeclip/api/internal/model"
)

// Query parameters that carry no identity, only attribution.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"si":           true,
	"share_app_id": true,
}

func isTrackingParam(name string) bool {
	return trackingParams[name] || strings.HasPrefix(name, "utm_")
}

// ParseVideoURL extracts the (platform, videoID) identity from a video URL
// without any network access.
func ParseVideoURL(rawURL string) (model.Platform, string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return model.PlatformUnknown, "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")
	segments := strings.Split(path, "/")

	switch {
	case host == "youtu.be":
		if len(segments) > 0 && segments[0] != "" {
			return model.PlatformYouTube, segments[0], true
		}
	case host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		if id := u.Query().Get("v"); id != "" {
			return model.PlatformYouTube, id, true
		}
		if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed" || segments[0] == "live") {
			return model.PlatformYouTube, segments[1], true
		}
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		for i, seg := range segments {
			if seg == "video" && i+1 < len(segments) {
				return model.PlatformTikTok, segments[i+1], true
			}
		}
	case host == "instagram.com":
		if len(segments) >= 2 && (segments[0] == "reel" || segments[0] == "reels" || segments[0] == "p") {
			return model.PlatformInstagram, segments[1], true
		}
	case host == "facebook.com" || host == "fb.watch":
		if host == "fb.watch" && len(segments) > 0 && segments[0] != "" {
			return model.PlatformFacebook, segments[0], true
		}
		for i, seg := range segments {
			if (seg == "videos" || seg == "reel") && i+1 < len(segments) {
				return model.PlatformFacebook, segments[i+1], true
			}
		}
	}

	return model.PlatformUnknown, "", false
}

// IsVideoPlatformURL reports whether the URL points at a known video
// platform; used by the link extractor to delegate to the video pipeline.
func IsVideoPlatformURL(rawURL string) bool {
	_, _, ok := ParseVideoURL(rawURL)
	return ok
}

// CanonicalizeURL normalizes a link URL for identity comparison: scheme and
// host lowercased, default ports and fragments dropped, tracking query
// parameters stripped, remaining parameters sorted, trailing slash trimmed.
func CanonicalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url: missing host")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		scheme = "https"
	}

	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")
	host = strings.TrimPrefix(host, "www.")

	path := strings.TrimSuffix(u.Path, "/")

	query := u.Query()
	var names []string
	for name := range query {
		if isTrackingParam(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []string
	for _, name := range names {
		values := query[name]
		sort.Strings(values)
		for _, v := range values {
			pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(v))
		}
	}

	canonical := scheme + "://" + host + path
	if len(pairs) > 0 {
		canonical += "?" + strings.Join(pairs, "&")
	}
	return canonical, nil
}
