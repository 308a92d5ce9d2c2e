package utils

import (
	"errors"
	"net/url"
	"strings"
)

var ErrUnsupportedURL = errors.New("unsupported url")

// ValidateImageURL accepts only absolute http(s) URLs. Upstream artwork links
// are proxied, so anything else (file:, data:, gopher:...) is refused.
func ValidateImageURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ErrUnsupportedURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return ErrUnsupportedURL
	}
	if parsed.Host == "" {
		return ErrUnsupportedURL
	}
	return nil
}

// EncodeURLWithSpaces properly encodes a URL that may contain unencoded spaces.
// fanart.tv occasionally returns artwork URLs with raw spaces.
func EncodeURLWithSpaces(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	encoded := parsedURL.Scheme + "://" + parsedURL.Host + parsedURL.EscapedPath()
	if parsedURL.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsedURL.RawQuery, " ", "%20")
	}
	return encoded, nil
}
