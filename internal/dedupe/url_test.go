package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recipeclip/api/internal/model"
)

func TestParseVideoURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		platform model.Platform
		videoID  string
		ok       bool
	}{
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", model.PlatformYouTube, "dQw4w9WgXcQ", true},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ", model.PlatformYouTube, "dQw4w9WgXcQ", true},
		{"youtube shorts", "https://www.youtube.com/shorts/abc123XYZ", model.PlatformYouTube, "abc123XYZ", true},
		{"youtube embed", "https://www.youtube.com/embed/abc123XYZ", model.PlatformYouTube, "abc123XYZ", true},
		{"youtube mobile", "https://m.youtube.com/watch?v=dQw4w9WgXcQ", model.PlatformYouTube, "dQw4w9WgXcQ", true},
		{"tiktok video", "https://www.tiktok.com/@cook/video/7291234567890", model.PlatformTikTok, "7291234567890", true},
		{"instagram reel", "https://www.instagram.com/reel/Cxyz123/", model.PlatformInstagram, "Cxyz123", true},
		{"instagram reels plural", "https://www.instagram.com/reels/Cxyz123/", model.PlatformInstagram, "Cxyz123", true},
		{"instagram post", "https://www.instagram.com/p/Cxyz123/", model.PlatformInstagram, "Cxyz123", true},
		{"facebook video", "https://www.facebook.com/somepage/videos/1234567890", model.PlatformFacebook, "1234567890", true},
		{"facebook reel", "https://www.facebook.com/reel/1234567890", model.PlatformFacebook, "1234567890", true},
		{"fb watch", "https://fb.watch/abc123/", model.PlatformFacebook, "abc123", true},
		{"plain blog", "https://www.seriouseats.com/carbonara-recipe", model.PlatformUnknown, "", false},
		{"youtube homepage", "https://www.youtube.com/", model.PlatformUnknown, "", false},
		{"garbage", "://not-a-url", model.PlatformUnknown, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform, videoID, ok := ParseVideoURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.platform, platform)
			assert.Equal(t, tt.videoID, videoID)
		})
	}
}

func TestParseVideoURL_TrackingParamsDoNotAffectIdentity(t *testing.T) {
	p1, id1, ok1 := ParseVideoURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	p2, id2, ok2 := ParseVideoURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ&utm_source=share&si=xyz")

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, id1, id2)
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips utm params", "https://example.com/recipe?utm_source=x&utm_medium=y", "https://example.com/recipe"},
		{"strips known tracking params", "https://example.com/recipe?fbclid=abc&gclid=def", "https://example.com/recipe"},
		{"keeps meaningful params sorted", "https://example.com/r?b=2&a=1", "https://example.com/r?a=1&b=2"},
		{"lowercases host", "https://Example.COM/Recipe", "https://example.com/Recipe"},
		{"drops www", "https://www.example.com/recipe", "https://example.com/recipe"},
		{"drops default https port", "https://example.com:443/recipe", "https://example.com/recipe"},
		{"trims trailing slash", "https://example.com/recipe/", "https://example.com/recipe"},
		{"mixed tracking and real", "https://example.com/r?utm_campaign=spring&page=2", "https://example.com/r?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalizeURL_SameRecipeDifferentShares(t *testing.T) {
	a, err := CanonicalizeURL("https://www.example.com/pasta/?utm_source=instagram&fbclid=xyz")
	require.NoError(t, err)
	b, err := CanonicalizeURL("https://example.com/pasta")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestCanonicalizeURL_Invalid(t *testing.T) {
	_, err := CanonicalizeURL("not a url")
	assert.Error(t, err)
}
