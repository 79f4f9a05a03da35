package memory

import "strings"

// matchSubject reports whether subject matches pattern. Tokens are separated
// by dots; "*" matches exactly one token and a trailing ">" matches one or
// more tokens.
func matchSubject(pattern, subject string) bool {
	if pattern == "" || subject == "" {
		return false
	}

	for {
		p, prest, pmore := strings.Cut(pattern, ".")
		s, srest, smore := strings.Cut(subject, ".")

		if p == ">" {
			return !pmore
		}
		if p != "*" && p != s {
			return false
		}
		if !pmore || !smore {
			return pmore == smore
		}
		pattern, subject = prest, srest
	}
}
