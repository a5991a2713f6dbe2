package viewdata

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// CollapseThreshold 超过该字符数的正文默认可折叠
const CollapseThreshold = 500

// IsCollapsible 纯文本长度超过阈值时可折叠
func IsCollapsible(content string) bool {
	if content == "" {
		return false
	}
	return utf8.RuneCountInString(PlainText(content)) > CollapseThreshold
}

// PlainText 把状态 HTML 转成纯文本，段落和换行保留为换行符
func PlainText(content string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	paragraphs := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "br":
				b.WriteByte('\n')
			case "p":
				if paragraphs > 0 {
					b.WriteString("\n\n")
				}
				paragraphs++
			}
		}
	}
}
