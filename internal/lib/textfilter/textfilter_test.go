package textfilter_test

import (
	"testing"

	"ansel/internal/lib/textfilter"

	"github.com/stretchr/testify/assert"
)

func TestEscapeCompat(t *testing.T) {
	assert.Equal(t, `a &amp; b &lt;c&gt; &quot;d&quot; 'e'`, textfilter.EscapeCompat(`a & b <c> "d" 'e'`))
}

func TestText2HTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "plain", in: "sunset", want: "sunset"},
		{name: "escaped", in: "<b>hi</b>", want: "&lt;b&gt;hi&lt;/b&gt;"},
		{name: "newline", in: "one\ntwo", want: "one<br />\ntwo"},
		{
			name: "url",
			in:   "see https://example.com/a?b=1&c=2 now",
			want: `see <a href="https://example.com/a?b=1&amp;c=2" target="_blank">https://example.com/a?b=1&amp;c=2</a> now`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, textfilter.Text2HTML(tt.in))
		})
	}
}
