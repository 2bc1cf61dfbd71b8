// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import "strings"

// fileExtension returns the extension of name without the dot, or "" when
// the last path segment has none.
func fileExtension(name string) string {
	dot := strings.LastIndexByte(name, '.')
	if dot < 0 {
		return ""
	}
	if sep := strings.LastIndexAny(name, `/\`); sep > dot {
		return ""
	}

	return name[dot+1:]
}

// isASCII reports whether s contains only 7-bit bytes.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}

	return true
}
