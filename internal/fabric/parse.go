package fabric

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Release is a parsed major.minor OS version.
type Release struct {
	Major int
	Minor int
}

// MinRelease is the oldest macOS whose networksetup behaves well enough
// for unattended fabric assignment (Tahoe 26.2).
var MinRelease = Release{Major: 26, Minor: 2}

func (r Release) String() string { return fmt.Sprintf("%d.%d", r.Major, r.Minor) }

// AtLeast reports whether r is min or newer.
func (r Release) AtLeast(min Release) bool {
	if r.Major != min.Major {
		return r.Major > min.Major
	}
	return r.Minor >= min.Minor
}

// parseRelease reads the numeric major.minor prefix of a version string
// such as "26.2.1". A missing minor component counts as zero.
func parseRelease(s string) (Release, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Release{}, fmt.Errorf("version %q: %w", s, err)
	}
	r := Release{Major: major}
	if len(parts) > 1 {
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return Release{}, fmt.Errorf("version %q: %w", s, err)
		}
		r.Minor = minor
	}
	return r, nil
}

// normalizeServices cleans `networksetup -listallnetworkservices` output
// into bare service names: the explanatory legend line is dropped when
// present and the leading asterisk that marks a disabled service is
// stripped, so disabled services still count as present.
func normalizeServices(out string) []string {
	var services []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line == "" {
			continue
		}
		services = append(services, line)
	}
	if len(services) > 0 && strings.HasPrefix(strings.ToLower(services[0]), "an asterisk") {
		services = services[1:]
	}
	return services
}

var ipAddressLine = regexp.MustCompile(`(?m)^IP address:\s*(.+?)\s*$`)

// parseServiceIPv4 extracts the live IPv4 address from
// `networksetup -getinfo` output. It returns "" when the address cannot
// be determined: no output, no "IP address:" line, or the literal "none"
// a service reports while unconfigured.
func parseServiceIPv4(out string) string {
	text := strings.TrimSpace(out)
	if text == "" {
		return ""
	}
	m := ipAddressLine.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	value := strings.TrimSpace(m[1])
	if value == "" || strings.EqualFold(value, "none") {
		return ""
	}
	return value
}
