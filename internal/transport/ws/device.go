package ws

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// deviceName condenses a User-Agent header into a readable "Browser on OS"
// label for connection logs.
func deviceName(rawUA string) string {
	if rawUA == "" {
		return "Unknown Device"
	}
	ua := useragent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if os == "" {
		os = "Unknown OS"
	}
	return strings.TrimSpace(fmt.Sprintf("%s on %s", browser, os))
}
