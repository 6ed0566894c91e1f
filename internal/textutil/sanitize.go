package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

const maxNameBytes = 120

// SanitizeFileName makes a title safe for use as a file name. Accents are
// folded to their base letters, unsafe characters replaced, runs of spaces
// collapsed, and the result truncated to a portable length on a rune boundary.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(foldAccents(name))
	if name == "" {
		return ""
	}
	name = fileNameReplacer.Replace(name)
	name = strings.Join(strings.Fields(name), " ")
	name = strings.Trim(name, ". ")
	return truncate(name, maxNameBytes)
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(foldAccents(value))
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range strings.ToLower(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}

// GUIDToken strips the scheme and agent prefix from a media server GUID
// ("plex://movie/5d776...", "local://1234") and returns a safe token.
func GUIDToken(guid string) string {
	guid = strings.TrimSpace(guid)
	if idx := strings.Index(guid, "://"); idx >= 0 {
		guid = guid[idx+3:]
	}
	if idx := strings.LastIndex(guid, "/"); idx >= 0 {
		guid = guid[idx+1:]
	}
	if idx := strings.Index(guid, "?"); idx >= 0 {
		guid = guid[:idx]
	}
	return SanitizeToken(guid)
}

func foldAccents(value string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8RuneStart(value[cut]) {
		cut--
	}
	return strings.TrimSpace(value[:cut])
}

func utf8RuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
