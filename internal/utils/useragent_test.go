package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		deviceType string
		platform   string
		bot        bool
	}{
		{
			name:       "Android phone",
			ua:         "Mozilla/5.0 (Linux; Android 12; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36",
			deviceType: "mobile",
			platform:   "android",
		},
		{
			name:       "iPad",
			ua:         "Mozilla/5.0 (iPad; CPU OS 15_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.0 Mobile/15E148 Safari/604.1",
			deviceType: "tablet",
		},
		{
			name:       "Windows desktop",
			ua:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
			deviceType: "desktop",
			platform:   "windows",
		},
		{
			name:       "Crawler",
			ua:         "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			deviceType: "bot",
			bot:        true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := ParseUserAgent(tc.ua)
			assert.Equal(t, tc.deviceType, info.DeviceType)
			assert.Equal(t, tc.bot, info.IsBot)
			if tc.platform != "" {
				assert.Equal(t, tc.platform, info.Platform)
			}
			assert.NotEqual(t, "Unknown", info.Browser)
		})
	}
}

func TestParseUserAgent_Empty(t *testing.T) {
	info := ParseUserAgent("")
	assert.Equal(t, "unknown", info.DeviceType)
	assert.Equal(t, "unknown", info.Platform)
	assert.False(t, info.IsBot)
}
