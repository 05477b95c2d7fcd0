package formatter

import (
	"fmt"
	"strings"
)

// TelegramFormatter formats found codes for Telegram (legacy Markdown)
type TelegramFormatter struct {
	maxSourceLength int
	escaper         *strings.Replacer
}

// NewTelegramFormatter creates a new Telegram formatter
func NewTelegramFormatter() *TelegramFormatter {
	return &TelegramFormatter{
		maxSourceLength: 300,
		escaper:         strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`),
	}
}

// FormatCode formats a found code notification
func (f *TelegramFormatter) FormatCode(code, source string) string {
	var sb strings.Builder

	sb.WriteString("🔐 *New Code Found*\n\n")
	sb.WriteString(fmt.Sprintf("Code: `%s`\n", code))
	sb.WriteString(fmt.Sprintf("Source: %s", f.escapeMarkdown(f.truncate(source))))

	return sb.String()
}

// escapeMarkdown escapes the characters legacy Markdown treats as entities
func (f *TelegramFormatter) escapeMarkdown(s string) string {
	return f.escaper.Replace(s)
}

// truncate truncates the source to maxSourceLength characters
func (f *TelegramFormatter) truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= f.maxSourceLength {
		return s
	}
	return string(runes[:f.maxSourceLength]) + "…"
}
