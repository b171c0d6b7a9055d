// Package coverage correlates generated test source against the endpoint
// catalog: it extracts HTTP call sites from test bodies, matches them to
// declared endpoints, maintains the test<->endpoint coverage mapping, and
// derives coverage statistics from it.
package coverage

import (
	"regexp"
	"strings"
)

// ParamToken is the placeholder every parameter-shaped path segment is
// collapsed to. Catalog paths and extracted paths are normalized with the
// same rules so "/users/42", "/users/{userId}" and f-string interpolations
// all reduce to the same comparable shape.
const ParamToken = "{id}"

var (
	digitsOnlyRe = regexp.MustCompile(`^\d+$`)
	uuidShapeRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// NormalizePath canonicalizes a URL path for comparison:
//
//  1. truncate at the first '?'
//  2. strip a single trailing '/'
//  3. collapse segments that are all digits, 36-character hyphenated
//     identifiers, or brace-delimited template parameters to ParamToken
func NormalizePath(path string) string {
	if i := strings.Index(path, "?"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
			continue
		case digitsOnlyRe.MatchString(seg):
			segments[i] = ParamToken
		case uuidShapeRe.MatchString(seg):
			segments[i] = ParamToken
		case strings.Contains(seg, "{"):
			// declared template parameter or f-string interpolation
			segments[i] = ParamToken
		}
	}
	return strings.Join(segments, "/")
}
