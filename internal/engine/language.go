package engine

import "strings"

// ResolveLanguage normalizes a caller-supplied source language. Empty input
// yields fallback, "auto" yields "" (let the model detect), and the Chinese
// aliases collapse to "zh".
func ResolveLanguage(raw, fallback string) string {
	lang := strings.ToLower(strings.TrimSpace(raw))
	switch lang {
	case "":
		return fallback
	case "auto":
		return ""
	case "cn", "zh-cn", "zh":
		return "zh"
	}
	return lang
}
