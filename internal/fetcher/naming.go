package fetcher

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PlaceholderName is used when neither the caller nor the URL yields a name.
const PlaceholderName = "document"

const maxStemRunes = 120

var illegalNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)

// DeriveName returns the last path segment of u (already unescaped by
// net/url, query excluded), or PlaceholderName.
func DeriveName(u *url.URL) string {
	p := u.Path
	seg := p[strings.LastIndex(p, "/")+1:]
	if strings.TrimSpace(seg) == "" {
		return PlaceholderName
	}
	return seg
}

// SanitizeName strips characters illegal on common filesystems, trims dots
// and spaces, and forces ext as the suffix. token, when non-empty, is
// inserted before the extension.
//
//	SanitizeName(`Q3: "final".PDF`, ".pdf", "")  // Q3 final.pdf
//	SanitizeName("report", ".pdf", "1700000000000-1a2b3c4d")
//	// report-1700000000000-1a2b3c4d.pdf
func SanitizeName(name, ext, token string) string {
	stem := illegalNameChars.ReplaceAllString(name, "")
	stem = strings.Trim(trimSuffixFold(strings.TrimSpace(stem), ext), " .")
	// "report.pdf." only exposes the extension after the first trim
	stem = strings.Trim(trimSuffixFold(stem, ext), " .")

	stem = strings.Join(strings.Fields(stem), " ")
	if utf8.RuneCountInString(stem) > maxStemRunes {
		stem = strings.TrimRight(string([]rune(stem)[:maxStemRunes]), " .")
	}
	if stem == "" {
		stem = PlaceholderName
	}

	if token != "" {
		stem += "-" + token
	}
	return stem + ext
}

func trimSuffixFold(s, suffix string) string {
	if suffix != "" && len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix) {
		return s[:len(s)-len(suffix)]
	}
	return s
}

// UniqueToken formats "<unix-millis>-<suffix>".
func UniqueToken(now time.Time, suffix string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

// randomHex8 returns eight hex characters from a random UUID.
func randomHex8() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// fileName resolves the on-disk name for one request.
func (f *Fetcher) fileName(name string) string {
	token := ""
	if f.opts.UniqueNames {
		token = UniqueToken(f.now(), f.randomSuffix())
	}
	return SanitizeName(name, f.opts.Extension, token)
}
