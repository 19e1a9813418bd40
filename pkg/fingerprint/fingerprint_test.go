package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	uaChromeWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	uaSafariIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1"
	uaFirefoxLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0"
	uaChromeAndroid = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Mobile Safari/537.36"
	uaEdgeMac       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0"
)

func TestCollectClassification(t *testing.T) {
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ua         string
		deviceType string
		browser    string
		os         string
	}{
		{"chrome on windows", uaChromeWindows, "Desktop", "Chrome", "Windows"},
		{"safari on iphone", uaSafariIPhone, "Mobile", "Safari", "iOS"},
		{"firefox on linux", uaFirefoxLinux, "Desktop", "Firefox", "Linux"},
		{"chrome on android", uaChromeAndroid, "Mobile", "Chrome", "Android"},
		{"edge on mac", uaEdgeMac, "Desktop", "Edge", "macOS"},
		{"empty agent", "", Unknown, Unknown, Unknown},
		{"garbage agent", "curl/8.7.1", Unknown, Unknown, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Collect(tt.ua, "203.0.113.9", now)
			require.Equal(t, tt.deviceType, d.DeviceType)
			require.Equal(t, tt.browser, d.Browser)
			require.Equal(t, tt.os, d.OS)
			require.Equal(t, "203.0.113.9", d.NetworkAddress)
		})
	}
}

func TestCollectAndroidOutranksLinux(t *testing.T) {
	d := Collect(uaChromeAndroid, "203.0.113.9", time.Now())
	require.Equal(t, "Android", d.OS, "mobile token must win over the Linux token in the same agent")
	require.Equal(t, "Mobile", d.DeviceType)
}

func TestCollectFingerprintStable(t *testing.T) {
	a := Collect(uaChromeWindows, "203.0.113.9", time.Now())
	b := Collect(uaChromeWindows, "203.0.113.9", time.Now().Add(time.Hour))
	require.Equal(t, a.Fingerprint, b.Fingerprint, "fingerprint must not depend on time")

	c := Collect(uaChromeWindows, "198.51.100.4", time.Now())
	require.NotEqual(t, a.Fingerprint, c.Fingerprint, "address change must change the fingerprint")

	d := Collect(uaFirefoxLinux, "203.0.113.9", time.Now())
	require.NotEqual(t, a.Fingerprint, d.Fingerprint, "agent change must change the fingerprint")
}

func TestCollectSuggestedName(t *testing.T) {
	now := time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)
	d := Collect(uaChromeWindows, "203.0.113.9", now)
	require.Equal(t, "Windows - Chrome (Mar 14, 2025)", d.SuggestedName)
}
