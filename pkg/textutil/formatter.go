package textutil

import (
	"regexp"
	"strings"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)

	// 后端偶尔会把提示词里的角色标签原样回显，这里逐一剥掉。
	echoArtifacts = []string{
		"🤖 Assistant:",
		"Assistant:",
		"🤖:",
		"👤:",
	}

	markdownSpecials = []string{
		"_", "*", "[", "]", "(", ")", "~", "`", ">", "#",
		"+", "-", "=", "|", "{", "}", ".", "!",
	}
)

// CleanResponse 清理生成文本：剥离角色标签回显、行尾空白与多余空行。
func CleanResponse(text string) string {
	for _, artifact := range echoArtifacts {
		text = strings.ReplaceAll(text, artifact, "")
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// EscapeMarkdown 转义 Markdown 特殊字符，用于降级为纯文本投递。
func EscapeMarkdown(text string) string {
	for _, ch := range markdownSpecials {
		text = strings.ReplaceAll(text, ch, "\\"+ch)
	}
	return text
}

// StripMarkdown 去掉常见的 Markdown 标记，作为格式化投递失败时的回退文本。
func StripMarkdown(text string) string {
	replacer := strings.NewReplacer("```", "", "**", "", "*", "", "`", "", "_", "")
	return replacer.Replace(text)
}
