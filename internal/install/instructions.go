package install

import "strings"

// Instructions are manual install steps for browsers without a prompt.
type Instructions struct {
	Platform string   `json:"platform"`
	Steps    []string `json:"steps"`
}

// InstructionsFor picks the steps matching a User-Agent header.
func InstructionsFor(userAgent string) Instructions {
	ua := strings.ToLower(userAgent)
	isIOS := strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad") || strings.Contains(ua, "ipod")
	isAndroid := strings.Contains(ua, "android")
	isSafari := strings.Contains(ua, "safari") && !strings.Contains(ua, "chrome")

	switch {
	case isIOS && isSafari:
		return Instructions{
			Platform: "iOS Safari",
			Steps: []string{
				"Tap the Share button (square with arrow)",
				`Scroll down and tap "Add to Home Screen"`,
				`Tap "Add" in the top right corner`,
			},
		}
	case isAndroid:
		return Instructions{
			Platform: "Android Chrome",
			Steps: []string{
				"Tap the menu button (three dots)",
				`Tap "Add to Home screen" or "Install app"`,
				`Tap "Install" or "Add"`,
			},
		}
	default:
		return Instructions{
			Platform: "Desktop",
			Steps: []string{
				"Click the install icon in the address bar",
				"Or use the browser menu to install",
			},
		}
	}
}
