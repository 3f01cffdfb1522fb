// Package keys builds result cache keys for bounding box reprojections.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
)

// BBox returns the cache key of bb reprojected to dst with samples points
// per edge. CRS names are case folded since lookups are case insensitive.
func BBox(bb model.BBox, dst string, samples int) string {
	src := strings.ToLower(strings.TrimSpace(bb.CRS))
	dst = strings.ToLower(strings.TrimSpace(dst))

	canon := strings.Join([]string{
		strconv.FormatFloat(bb.X1, 'g', -1, 64),
		strconv.FormatFloat(bb.Y1, 'g', -1, 64),
		strconv.FormatFloat(bb.X2, 'g', -1, 64),
		strconv.FormatFloat(bb.Y2, 'g', -1, 64),
		src, dst, strconv.Itoa(samples),
	}, "\x00")
	sum := xxhash.Sum64String(canon)

	const maxNameLen = 48
	return fmt.Sprintf("bbox:%s:%s:n=%d:f=%016x",
		truncate(sanitizeName(src), maxNameLen), truncate(sanitizeName(dst), maxNameLen), samples, sum)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// sanitizeName keeps key-safe ASCII and collapses everything else to '-'.
func sanitizeName(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// ':' is the key separator, so it is replaced too
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
