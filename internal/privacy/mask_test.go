package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreserveFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4111 1111 1111 1111", "4*** **** **** ***1"},
		{"637.872.5738x038", "6**.***.*******8"},
		{"123-45-6789", "1**-**-***9"},
		{"(555) 123-4567", "(5**) ***-***7"},
		{"ab", "**"},
		{"a-b", "*-*"},
		{"x", "*"},
		{"", ""},
		{"--", "--"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PreserveFormat(tt.in), "input %q", tt.in)
	}
}

func TestRenderPlaceholder(t *testing.T) {
	assert.Equal(t, "[EMAIL_REDACTED]", RenderPlaceholder("", "EMAIL", 1))
	assert.Equal(t, "<EMAIL#2>", RenderPlaceholder("<{{TYPE}}#{{INDEX}}>", "EMAIL", 2))
	assert.Equal(t, "[hidden]", RenderPlaceholder("[hidden]", "EMAIL", 3))
}
