package coverage

import (
	"strings"

	"github.com/weavesuite/weavesuite/catalog"
)

// MatchEndpoint resolves one extracted (method, path) candidate against an
// endpoint set in catalog order (ascending id). Method comparison is exact
// on uppercase; paths are compared normalized, with exact equality
// preferred over a parameterized-segment match. Within each tier the
// lowest endpoint id wins, which makes matching deterministic when several
// endpoints share a normalized shape. A nil return is the normal
// uncovered-call-site outcome, not an error.
func MatchEndpoint(method, path string, endpoints []*catalog.Endpoint) *catalog.Endpoint {
	method = strings.ToUpper(method)
	normalized := NormalizePath(path)

	var paramMatch *catalog.Endpoint
	for _, ep := range endpoints {
		if ep.Method != method {
			continue
		}
		epNormalized := NormalizePath(ep.Path)
		if epNormalized == normalized {
			return ep
		}
		if paramMatch == nil && segmentsMatch(epNormalized, normalized) {
			paramMatch = ep
		}
	}
	return paramMatch
}

// segmentsMatch reports whether a normalized endpoint path matches a
// normalized candidate path segment-by-segment, with ParamToken in the
// endpoint path matching any single non-empty candidate segment.
func segmentsMatch(pattern, candidate string) bool {
	patternSegs := strings.Split(pattern, "/")
	candidateSegs := strings.Split(candidate, "/")
	if len(patternSegs) != len(candidateSegs) {
		return false
	}

	for i := range patternSegs {
		if patternSegs[i] == candidateSegs[i] {
			continue
		}
		if patternSegs[i] == ParamToken && candidateSegs[i] != "" {
			continue
		}
		return false
	}
	return true
}
