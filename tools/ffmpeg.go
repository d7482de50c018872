package tools

import "strings"

// LavfiColor converts #RRGGBB to the 0xRRGGBB form lavfi and drawtext accept
func LavfiColor(hex string) string {
	return "0x" + strings.TrimPrefix(hex, "#")
}

// EscapeDrawtext escapes a string for a drawtext text= value
func EscapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")
	s = strings.ReplaceAll(s, ":", "\\:")
	s = strings.ReplaceAll(s, "%", "\\%")
	return s
}
