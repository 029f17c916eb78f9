// Package textutil 提供了消息分块与文本清理的工具函数。
package textutil

import (
	"regexp"
	"strings"
)

// DefaultChunkLimit 是单条消息的默认长度上限（聊天传输层限制）。
const DefaultChunkLimit = 4096

var sentenceEnd = regexp.MustCompile(`(?s)([.!?。！？])\s+`)

// SplitMessage 将长文本切分为不超过 maxLength 的若干段。
// 优先按段落切分，段落过长时按句子切分，句子仍然过长时强制截断。
func SplitMessage(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultChunkLimit
	}
	if len(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		if len(paragraph) > maxLength {
			// 段落过长，按句子切分
			for _, sentence := range splitSentences(paragraph) {
				if len(sentence) > maxLength {
					flush()
					chunks = append(chunks, hardSplit(sentence, maxLength-100)...)
					continue
				}
				if current.Len()+len(sentence)+1 > maxLength {
					flush()
				}
				current.WriteString(sentence)
				current.WriteString(" ")
			}
			continue
		}

		if current.Len()+len(paragraph)+2 > maxLength {
			flush()
		}
		current.WriteString(paragraph)
		current.WriteString("\n\n")
	}
	flush()

	return chunks
}

// splitSentences 在句末标点后的空白处切分句子。
func splitSentences(text string) []string {
	parts := sentenceEnd.Split(text, -1)
	marks := sentenceEnd.FindAllStringSubmatch(text, -1)
	sentences := make([]string, 0, len(parts))
	for i, p := range parts {
		if i < len(marks) {
			p += marks[i][1]
		}
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// hardSplit 在字符边界上强制切分超长文本。
func hardSplit(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkLimit
	}
	runes := []rune(text)
	var out []string
	for len(runes) > 0 {
		n := len(runes)
		// 按字节预算收缩本段的字符数
		for n > 0 && len(string(runes[:n])) > size {
			n--
		}
		if n == 0 {
			n = 1
		}
		out = append(out, string(runes[:n]))
		runes = runes[n:]
	}
	return out
}
