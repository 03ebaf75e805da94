package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// ClientInfo is the parsed User-Agent attached to request logs
type ClientInfo struct {
	DeviceType string `json:"device_type"` // mobile, tablet, desktop, bot, unknown
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	Platform   string `json:"platform"` // android, ios, windows, mac, linux
	IsBot      bool   `json:"is_bot"`
}

var tabletMarkers = []string{"ipad", "tablet", "kindle", "nexus 7", "nexus 9", "nexus 10", "sm-t"}

var platforms = []struct{ marker, name string }{
	{"android", "android"},
	{"iphone os", "ios"},
	{"ios", "ios"},
	{"windows", "windows"},
	{"mac os x", "mac"},
	{"macos", "mac"},
	{"chrome os", "chromeos"},
	{"linux", "linux"},
	{"ubuntu", "linux"},
}

// ParseUserAgent extracts device information from a User-Agent header
func ParseUserAgent(userAgent string) ClientInfo {
	if strings.TrimSpace(userAgent) == "" {
		return ClientInfo{DeviceType: "unknown", OS: "Unknown", Browser: "Unknown", Platform: "unknown"}
	}

	parser := ua.New(userAgent)
	info := ClientInfo{
		IsBot:    parser.Bot(),
		OS:       osName(parser),
		Browser:  browserName(parser),
		Platform: platform(parser),
	}

	switch {
	case info.IsBot:
		info.DeviceType = "bot"
	case parser.Mobile() && isTablet(userAgent):
		info.DeviceType = "tablet"
	case parser.Mobile():
		info.DeviceType = "mobile"
	default:
		info.DeviceType = "desktop"
	}
	return info
}

func isTablet(userAgent string) bool {
	lower := strings.ToLower(userAgent)
	for _, m := range tabletMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func osName(parser *ua.UserAgent) string {
	os := parser.OSInfo()
	if os.Name == "" {
		return "Unknown"
	}
	if os.Version != "" {
		return os.Name + " " + os.Version
	}
	return os.Name
}

func browserName(parser *ua.UserAgent) string {
	name, version := parser.Browser()
	if name == "" {
		return "Unknown"
	}
	if version != "" {
		return name + " " + version
	}
	return name
}

// platform checks the markers in order so "iphone os" wins over "mac os x"
func platform(parser *ua.UserAgent) string {
	name := strings.ToLower(parser.OSInfo().Name)
	for _, p := range platforms {
		if strings.Contains(name, p.marker) {
			return p.name
		}
	}
	return "unknown"
}
