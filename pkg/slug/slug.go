// Package slug turns titles into URL-safe identifiers and resolves collisions
// with a numeric suffix.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Make normalises title into a lowercase hyphenated token sequence of at most
// maxLen bytes. The result may be empty for degenerate input.
func Make(title string, maxLen int) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingDash = true
		}
		// 其余标点和非 ASCII 字符直接丢弃
	}
	return truncate(b.String(), maxLen)
}

// ExistsFunc reports whether a candidate slug is already taken.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns base, or base-1, base-2, ... whichever is free first. The
// base is shortened so the suffixed candidate never exceeds maxLen.
func Unique(ctx context.Context, base string, maxLen int, exists ExistsFunc) (string, error) {
	base = truncate(base, maxLen)
	taken, err := exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	for i := 1; ; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		suffix := "-" + strconv.Itoa(i)
		candidate := truncate(base, maxLen-len(suffix)) + suffix
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}

func truncate(s string, maxLen int) string {
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Trim(s, "-")
}
