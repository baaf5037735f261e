package core

import (
	"hash/fnv"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Digest is a content-addressed key for threading lookups. The zero value
// means "no key".
type Digest uint64

// IsEmpty reports whether d carries no key.
func (d Digest) IsEmpty() bool { return d == 0 }

func digestOf(s string) Digest {
	if s == "" {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	d := Digest(h.Sum64())
	if d == 0 {
		d = 1
	}
	return d
}

// DigestMessageID returns the digest of a Message-Id style identifier.
// Surrounding angle brackets and whitespace are ignored.
func DigestMessageID(id string) Digest {
	id = strings.TrimSpace(id)
	id = strings.TrimPrefix(id, "<")
	id = strings.TrimSuffix(id, ">")
	return digestOf(strings.TrimSpace(id))
}

var (
	replyPrefix = regexp.MustCompile(
		`(?i)^\s*(re|fwd?|aw|sv|antw|wg|tr|vs|odp|rif|res)\s*(\[\d+\]|\^\d+|\(\d+\))?\s*:\s*`,
	)
	listTag = regexp.MustCompile(`^\s*\[[^\]]*\]\s*`)
)

// StripSubject removes any sequence of reply/forward prefixes and mailing
// list tags from the front of subject. prefixed reports whether at least one
// reply/forward prefix was removed.
func StripSubject(subject string) (stripped string, prefixed bool) {
	s := subject
	for {
		if loc := replyPrefix.FindStringIndex(s); loc != nil {
			s = s[loc[1]:]
			prefixed = true
			continue
		}
		if loc := listTag.FindStringIndex(s); loc != nil && loc[1] < len(s) {
			s = s[loc[1]:]
			continue
		}
		break
	}
	return strings.TrimSpace(s), prefixed
}

// DigestSubject returns the digest of an already stripped subject, folded
// so that case and Unicode normalisation differences do not matter.
func DigestSubject(stripped string) Digest {
	stripped = strings.Join(strings.Fields(stripped), " ")
	if stripped == "" {
		return 0
	}
	return digestOf(cases.Fold().String(norm.NFC.String(stripped)))
}
