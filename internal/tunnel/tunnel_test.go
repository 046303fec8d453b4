package tunnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			"plain url",
			"https://witty-badger-example.trycloudflare.com",
			"https://witty-badger-example.trycloudflare.com",
		},
		{
			"embedded in cloudflared banner",
			"2026-08-29T10:00:00Z INF |  https://witty-badger-example.trycloudflare.com  |",
			"https://witty-badger-example.trycloudflare.com",
		},
		{"no url", "2026-08-29T10:00:00Z INF Starting tunnel", ""},
		{"wrong domain", "https://example.com/video", ""},
		{"empty line", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURL(tt.line))
		})
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := NewService("cloudflared", nil)
	s.Stop()
	assert.Empty(t, s.PublicURL())
}

func TestStartWithMissingBinary(t *testing.T) {
	s := NewService("definitely-not-a-real-binary-name", nil)
	err := s.Start("8080")
	assert.Error(t, err)
	assert.Empty(t, s.PublicURL())
}
