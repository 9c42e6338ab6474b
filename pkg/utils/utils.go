package utils

import (
	"context"
	"log"
	"runtime/debug"
	"strings"
	"unicode/utf8"
)

// GoSafe runs fn in a new goroutine and recovers from panics so a single
// failing task cannot take down the process.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether the context is still alive.
func ShouldContinue(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	default:
		return true
	}
}

// ContainsString reports whether target is present in list.
func ContainsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

// CleanToValidUTF8 strips invalid UTF-8 sequences and NUL bytes from s.
func CleanToValidUTF8(s string) string {
	if utf8.ValidString(s) && !strings.ContainsRune(s, '\x00') {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	return strings.ReplaceAll(s, "\x00", "")
}
