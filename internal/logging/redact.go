// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package logging

import "strings"

// maxLoggedBody bounds upstream response bodies copied into log fields.
const maxLoggedBody = 512

// SanitizeToken masks a BGG API token or password, keeping the first and
// last four characters of long values.
//
//	SanitizeToken("0123456789abcdef") // "0123...cdef"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// Scrub replaces every occurrence of the given secrets in s with a masked
// form. Empty secrets are ignored.
func Scrub(s string, secrets ...string) string {
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		s = strings.ReplaceAll(s, secret, SanitizeToken(secret))
	}
	return s
}

// TruncateBody shortens an upstream payload for logging.
func TruncateBody(body []byte) string {
	return truncateString(strings.TrimSpace(string(body)), maxLoggedBody)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
