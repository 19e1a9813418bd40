package http

import (
	"net/http"
	"time"

	"github.com/loomhr/auth/pkg/fingerprint"
	"github.com/loomhr/auth/pkg/httpx"
)

// collectDevice derives the caller's device description from the request.
// The fingerprint is what the trust registry and audit trail key on.
func collectDevice(r *http.Request) fingerprint.Device {
	return fingerprint.Collect(r.UserAgent(), httpx.IPKeyExtractor(r), time.Now().UTC())
}
