package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripSubject(t *testing.T) {
	tests := []struct {
		in       string
		want     string
		prefixed bool
	}{
		{"Hello", "Hello", false},
		{"Re: Hello", "Hello", true},
		{"RE:Re: Fwd: Hello", "Hello", true},
		{"Re[2]: Hello", "Hello", true},
		{"AW: Hallo", "Hallo", true},
		{"[dev-list] Re: Patch v2", "Patch v2", true},
		{"Re: [dev-list] Patch v2", "Patch v2", true},
		{"[dev-list]", "[dev-list]", false},
		{"Regarding: the plan", "Regarding: the plan", false},
		{"  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, prefixed := StripSubject(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.prefixed, prefixed)
		})
	}
}

func TestDigestSubject_IgnoresCaseAndSpacing(t *testing.T) {
	assert.Equal(t, DigestSubject("Quarterly numbers"), DigestSubject("quarterly   NUMBERS "))
	assert.Equal(t, DigestSubject("école"), DigestSubject("E\u0301COLE"))
	assert.NotEqual(t, DigestSubject("Quarterly numbers"), DigestSubject("Quarterly number"))
	assert.True(t, DigestSubject("   ").IsEmpty())
}

func TestDigestMessageID(t *testing.T) {
	assert.Equal(t, DigestMessageID("abc@example.com"), DigestMessageID(" <abc@example.com> "))
	assert.NotEqual(t, DigestMessageID("abc@example.com"), DigestMessageID("abd@example.com"))
	assert.True(t, DigestMessageID("").IsEmpty())
	assert.True(t, DigestMessageID("<>").IsEmpty())
}
