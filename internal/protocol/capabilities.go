package protocol

import "sort"

// CapabilityDeflate enables per-frame deflate once both peers advertise it.
const CapabilityDeflate = "deflate"

// KnownCapabilities lists every capability this build understands.
var KnownCapabilities = []string{CapabilityDeflate}

// IntersectCapabilities returns the sorted, de-duplicated set of
// capabilities present in both lists.
func IntersectCapabilities(ours, theirs []string) []string {
	have := make(map[string]bool, len(ours))
	for _, c := range ours {
		have[c] = true
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, c := range theirs {
		if have[c] && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// HasCapability reports whether caps contains c.
func HasCapability(caps []string, c string) bool {
	for _, v := range caps {
		if v == c {
			return true
		}
	}
	return false
}

// IsKnownCapability reports whether c is understood by this build.
func IsKnownCapability(c string) bool {
	return HasCapability(KnownCapabilities, c)
}
