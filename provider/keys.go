package provider

import "strings"

// ParseKeys splits a comma-separated credential list, trimming whitespace
// and dropping empty entries and unedited placeholder values.
func ParseKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k == "" || isPlaceholder(k) {
			continue
		}
		keys = append(keys, k)
	}
	return keys
}

func isPlaceholder(key string) bool {
	switch key {
	case "your_key_here", "gsk_your_key_here", "sk-your_key_here":
		return true
	}
	return false
}
