package providers

import (
	"net/url"
	"strings"
)

const youTubeEmbedBase = "https://www.youtube.com/embed/"

// PreviewEmbedURL builds the muted, looping, chrome-less YouTube URL used by the
// spotlight trailer layer. Playback starts five seconds in to skip studio cards.
func PreviewEmbedURL(key, origin string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	q := url.Values{}
	q.Set("autoplay", "1")
	q.Set("mute", "1")
	q.Set("controls", "0")
	q.Set("showinfo", "0")
	q.Set("rel", "0")
	q.Set("modestbranding", "1")
	q.Set("iv_load_policy", "3")
	q.Set("loop", "1")
	q.Set("playlist", key)
	q.Set("start", "5")
	q.Set("enablejsapi", "1")
	if origin = strings.TrimSpace(origin); origin != "" {
		q.Set("origin", origin)
	}
	return youTubeEmbedBase + url.PathEscape(key) + "?" + q.Encode()
}
