package posting

import (
	"net/url"
	"strings"
)

// selector matches an element by tag and, optionally, one of its classes.
type selector struct {
	tag   string
	class string
}

// siteProfile holds the per-site hints used to locate structured fields.
type siteProfile struct {
	name   string
	titles []selector
}

var (
	salaryLabels         = []string{"給与", "給料", "月給"}
	locationLabels       = []string{"勤務地", "勤務先"}
	qualificationsLabels = []string{"応募資格", "対象となる方", "求める人材"}
)

var defaultProfile = siteProfile{
	name:   "default",
	titles: []selector{{tag: "h1"}},
}

var siteProfiles = map[string]siteProfile{
	"gakujo.ne.jp": {
		name:   "gakujo",
		titles: []selector{{tag: "h1", class: "h1-company-name_inner"}, {tag: "h1"}},
	},
	"re-katsu.jp": {
		name:   "re-katsu",
		titles: []selector{{tag: "h1", class: "recruit-title"}, {tag: "h2", class: "recruit-title"}, {tag: "h1"}},
	},
}

// SiteDomain returns the host of pageURL without a leading "www.".
func SiteDomain(pageURL string) string {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func profileFor(domain string) siteProfile {
	for suffix, p := range siteProfiles {
		if domain == suffix || strings.HasSuffix(domain, "."+suffix) {
			return p
		}
	}
	return defaultProfile
}
