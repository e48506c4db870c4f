// Package device derives the human readable device label stored on sessions.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// DisplayName turns a User-Agent into "Browser on OS" (e.g. "Chrome on Windows 10",
// "Safari on iPhone"). It returns "" when nothing useful can be parsed so the
// caller can apply its own placeholder.
func DisplayName(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return ""
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	browser = strings.TrimSpace(browser)

	platform := strings.TrimSpace(ua.OS())
	if ua.Mobile() {
		if p := strings.TrimSpace(ua.Platform()); p != "" {
			platform = p
		}
	}

	switch {
	case browser != "" && platform != "":
		return browser + " on " + platform
	case browser != "":
		return browser
	default:
		return platform
	}
}
