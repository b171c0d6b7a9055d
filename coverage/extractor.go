package coverage

import (
	"regexp"
	"strings"
)

// CallSite is one HTTP invocation recovered from test source text. Path is
// already normalized.
type CallSite struct {
	Method string `json:"method"` // uppercase
	Path   string `json:"path"`
}

// callSiteRe recognizes call idioms of the form alias.verb("literal") or
// alias.verb(f"literal") across conventional HTTP client aliases. The two
// quote styles are separate alternatives because RE2 has no backreferences.
var callSiteRe = regexp.MustCompile(
	`(?i)\b(?:self\s*\.\s*)?(?:client|requests|session|httpx|http|api|app)\s*\.\s*` +
		`(get|post|put|delete|patch|head|options)\s*\(\s*f?("([^"\\]*(?:\\.[^"\\]*)*)"|'([^'\\]*(?:\\.[^'\\]*)*)')`)

// pathShapedRe finds path-shaped substrings inside interpolated literals.
var pathShapedRe = regexp.MustCompile(`/[A-Za-z0-9_\-./{}]*`)

// ExtractCallSites scans test source text and returns a de-duplicated set
// of (method, path) candidates. It is intentionally best-effort and lossy:
// missed call sites are acceptable, and malformed input yields an empty
// result rather than an error.
func ExtractCallSites(source string) []CallSite {
	matches := callSiteRe.FindAllStringSubmatch(source, -1)
	if matches == nil {
		return nil
	}

	seen := make(map[CallSite]struct{})
	var sites []CallSite
	for _, m := range matches {
		verb := strings.ToUpper(m[1])

		literal := m[3]
		if strings.HasPrefix(m[2], "'") {
			literal = m[4]
		}

		path, ok := resolvePath(literal)
		if !ok {
			continue // no path recoverable from this literal
		}

		site := CallSite{Method: verb, Path: NormalizePath(path)}
		if _, dup := seen[site]; dup {
			continue
		}
		seen[site] = struct{}{}
		sites = append(sites, site)
	}
	return sites
}

// resolvePath recovers a URL path from a string literal.
func resolvePath(literal string) (string, bool) {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return "", false
	}

	// Already a path.
	if strings.HasPrefix(literal, "/") {
		return literal, true
	}

	// Full URL: take the path component after the authority.
	if rest, ok := strings.CutPrefix(literal, "http://"); ok {
		return pathAfterAuthority(rest)
	}
	if rest, ok := strings.CutPrefix(literal, "https://"); ok {
		return pathAfterAuthority(rest)
	}

	// Interpolated literal: take the longest path-shaped substring.
	if strings.Contains(literal, "{") {
		var longest string
		for _, candidate := range pathShapedRe.FindAllString(literal, -1) {
			if len(candidate) > len(longest) {
				longest = candidate
			}
		}
		if longest != "" {
			return longest, true
		}
	}

	return "", false
}

func pathAfterAuthority(hostAndPath string) (string, bool) {
	if i := strings.Index(hostAndPath, "/"); i >= 0 {
		return hostAndPath[i:], true
	}
	return "", false // URL with no path component
}
