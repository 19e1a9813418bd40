// Package fingerprint derives a stable device identifier and descriptive
// metadata from client-supplied environment strings. It is a pure function
// of its inputs: no ambient runtime access, no errors. Missing information
// degrades to "Unknown", never to a failure.
package fingerprint

import (
	"fmt"
	"strings"
	"time"

	"github.com/loomhr/auth/pkg/cryptox"
)

// Unknown is the fallback value for every classified field.
const Unknown = "Unknown"

// Device is the normalized description of a calling client.
type Device struct {
	Fingerprint    string // stable identifier, opaque to all consumers
	DeviceType     string // "Mobile", "Tablet", "Desktop" or Unknown
	Browser        string
	OS             string
	NetworkAddress string
	SuggestedName  string // "{os} - {browser} ({shortDate})"
}

// Collect classifies the user-agent string and network address into a
// Device. Safe to call concurrently and repeatedly.
func Collect(userAgent, networkAddress string, now time.Time) Device {
	osName := classifyOS(userAgent)
	browser := classifyBrowser(userAgent)

	return Device{
		Fingerprint:    cryptox.FingerprintToken(userAgent + "|" + networkAddress),
		DeviceType:     classifyDeviceType(userAgent),
		Browser:        browser,
		OS:             osName,
		NetworkAddress: networkAddress,
		SuggestedName:  fmt.Sprintf("%s - %s (%s)", osName, browser, now.Format("Jan 2, 2006")),
	}
}

// classifyDeviceType checks mobile-indicating tokens before desktop OS
// tokens: an Android phone UA also contains "Linux". "Desktop" requires a
// recognized desktop OS token; anything else degrades to Unknown.
func classifyDeviceType(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return "Tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return "Mobile"
	case strings.Contains(ua, "windows") || strings.Contains(ua, "macintosh") ||
		strings.Contains(ua, "mac os") || strings.Contains(ua, "cros") ||
		strings.Contains(ua, "x11") || strings.Contains(ua, "linux"):
		return "Desktop"
	default:
		return Unknown
	}
}

func classifyOS(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	// Mobile platforms take precedence over the desktop tokens their
	// user agents also carry.
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad"):
		return "iOS"
	case strings.Contains(lower, "android"):
		return "Android"
	case strings.Contains(lower, "windows"):
		return "Windows"
	case strings.Contains(lower, "mac os") || strings.Contains(lower, "macintosh"):
		return "macOS"
	case strings.Contains(lower, "cros"):
		return "ChromeOS"
	case strings.Contains(lower, "linux"):
		return "Linux"
	default:
		return Unknown
	}
}

func classifyBrowser(ua string) string {
	lower := strings.ToLower(ua)
	switch {
	// Order matters: Edge and Opera UAs contain "chrome", Chrome UAs
	// contain "safari".
	case strings.Contains(lower, "edg/") || strings.Contains(lower, "edge"):
		return "Edge"
	case strings.Contains(lower, "opr/") || strings.Contains(lower, "opera"):
		return "Opera"
	case strings.Contains(lower, "firefox"):
		return "Firefox"
	case strings.Contains(lower, "chrome"):
		return "Chrome"
	case strings.Contains(lower, "safari"):
		return "Safari"
	default:
		return Unknown
	}
}
