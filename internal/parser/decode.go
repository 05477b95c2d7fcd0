package parser

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mixelka/codewatch/pkg/models"
)

// DecodeBody turns a message part into text according to its transfer encoding
func DecodeBody(part *models.MessagePart) (string, error) {
	switch part.Encoding {
	case models.EncodingIdentity:
		return part.Data, nil
	case models.EncodingBase64URL:
		data, err := decodeBase64(part.Data)
		if err != nil {
			return "", fmt.Errorf("failed to decode base64 body: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported body encoding: %s", part.Encoding)
	}
}

// decodeBase64 accepts URL or standard alphabet, padded or not
func decodeBase64(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if strings.ContainsAny(s, "+/") {
		return base64.RawStdEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}

// IsHTML reports whether a part should go through the HTML parser
func IsHTML(part *models.MessagePart) bool {
	return strings.HasPrefix(strings.ToLower(part.MimeType), "text/html")
}

// Truncate returns the first n characters of s
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
