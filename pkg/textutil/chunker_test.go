package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessageShortTextUnchanged(t *testing.T) {
	chunks := SplitMessage("短消息", 4096)
	assert.Equal(t, []string{"短消息"}, chunks)
}

func TestSplitMessageByParagraphs(t *testing.T) {
	p1 := strings.Repeat("a", 60)
	p2 := strings.Repeat("b", 60)
	text := p1 + "\n\n" + p2

	chunks := SplitMessage(text, 100)

	require.Len(t, chunks, 2)
	assert.Equal(t, p1, chunks[0])
	assert.Equal(t, p2, chunks[1])
}

func TestSplitMessageRespectsLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("This is sentence number one. And here goes another one. ")
	}

	chunks := SplitMessage(sb.String(), 200)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestSplitMessageHardSplitsUnbrokenText(t *testing.T) {
	text := strings.Repeat("x", 1000)

	chunks := SplitMessage(text, 200)

	require.Greater(t, len(chunks), 1)
	var total int
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 200)
		total += len(c)
	}
	assert.Equal(t, 1000, total)
}

func TestSplitMessageKeepsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("中文字符测试。", 200)

	chunks := SplitMessage(text, 300)

	// 强制切分不得破坏多字节字符
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
	assert.Equal(t, text, strings.Join(chunks, ""))
}

func TestSplitMessageDefaultLimit(t *testing.T) {
	text := strings.Repeat("y", DefaultChunkLimit+1)

	chunks := SplitMessage(text, 0)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), DefaultChunkLimit)
	}
}
