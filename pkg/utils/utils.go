package utils

import "strings"

// Truncate cuts s to at most n runes and appends "..." when it had to cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Prefix returns the first n runes of s without any marker.
func Prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// GenerateChatTitle derives a chat title from its first message.
func GenerateChatTitle(firstMessage string) string {
	title := Truncate(strings.TrimSpace(firstMessage), 30)
	if title == "" {
		return "New Chat"
	}
	return title
}
