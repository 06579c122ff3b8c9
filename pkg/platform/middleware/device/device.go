// Package device derives a human readable device label from the User-Agent.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Label summarizes a User-Agent as "Browser on OS", e.g. "Chrome on Mac OS X".
// Unknown agents yield "Unknown device".
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown device"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Bot"
	}
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "Unknown device"
	}
}

// Mobile reports whether the agent identifies as a mobile device.
func Mobile(userAgent string) bool {
	return useragent.New(userAgent).Mobile()
}
