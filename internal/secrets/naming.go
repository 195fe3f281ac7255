package secrets

import "strings"

// DeriveName builds a stable identifier from a human-readable name: the
// prefix followed by the name uppercased with everything but ASCII letters
// and digits removed. It returns "" when nothing usable remains.
//
//	DeriveName("PAGEVITALS_WEBSITE_", "My Site!") == "PAGEVITALS_WEBSITE_MYSITE"
func DeriveName(prefix, displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(displayName) {
		if ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return prefix + b.String()
}

// WebsiteName derives the credentials name for a website.
func WebsiteName(displayName string) string {
	return DeriveName(WebsitePrefix, displayName)
}
