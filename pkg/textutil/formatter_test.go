package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips assistant label", "🤖 Assistant: 你好", "你好"},
		{"strips bare labels", "🤖: 回答\n👤: 追问", "回答\n 追问"},
		{"trims trailing whitespace", "第一行  \n第二行\t", "第一行\n第二行"},
		{"collapses blank lines", "a\n\n\n\n\nb", "a\n\nb"},
		{"trims surrounding space", "  正文  ", "正文"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanResponse(tt.in))
		})
	}
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\*bold\*`, EscapeMarkdown("*bold*"))
	assert.Equal(t, `a\.b\!`, EscapeMarkdown("a.b!"))
}

func TestStripMarkdown(t *testing.T) {
	assert.Equal(t, "code block", StripMarkdown("```code block```"))
	assert.Equal(t, "bold and italic", StripMarkdown("**bold** and *italic*"))
	assert.Equal(t, "inline and under", StripMarkdown("`inline` and _under_"))
}
