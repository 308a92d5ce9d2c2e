package utils

import (
	"strings"
	"testing"
)

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		// Allowed
		{"http://assets.fanart.tv/fanart/movies/603/hdmovielogo/the-matrix.png", false},
		{"https://image.tmdb.org/t/p/w500/poster.jpg", false},
		{"HTTPS://EXAMPLE.COM/FILE.PNG", false},

		// Blocked
		{"", true},
		{"   ", true},
		{"/relative/logo.png", true},
		{"file:///etc/passwd", true},
		{"ftp://evil.com/payload", true},
		{"gopher://evil.com", true},
		{"data:image/png;base64,AAAA", true},
		{"https://", true},
	}

	for _, tt := range tests {
		err := ValidateImageURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateImageURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

func TestEncodeURLWithSpaces(t *testing.T) {
	result, err := EncodeURLWithSpaces("http://example.com/path with spaces/file name.png?a=b c")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "path%20with%20spaces") {
		t.Errorf("expected encoded spaces in path, got %q", result)
	}
	if !strings.HasSuffix(result, "?a=b%20c") {
		t.Errorf("expected encoded spaces in query, got %q", result)
	}
}
