// Package normalize implements the Deduper/Normalizer (C4): a pure
// function turning a PostingRaw into canonical PostingNormalized form,
// per spec.md §4.4.
package normalize

import (
	"net/url"
	"sort"
	"strings"
	"unicode"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/careercrawl/orchestrator/internal/models"
)

var mdConverter = md.NewConverter("", true, nil)

// Normalize turns a raw extracted posting into its canonical,
// deduplication-ready form. Pure: no I/O, no clock, no randomness.
func Normalize(raw models.PostingRaw, maxDescriptionChars int) models.PostingNormalized {
	return models.PostingNormalized{
		ExternalID:   normalizeExternalID(raw.ExternalID),
		CanonicalURL: CanonicalURL(raw.URL),
		Title:        collapseWhitespace(raw.Title),
		Location:     collapseWhitespace(raw.Location),
		Description:  normalizeDescription(raw.Description, maxDescriptionChars),
		PostedAt:     raw.PostedAt,
	}
}

// trackedQueryParams, plus any key starting with "utm_" (see
// isTrackedParam), are stripped from the canonical URL per spec.md §4.4.
var trackedQueryParams = map[string]bool{
	"gclid": true,
	"fbclid": true,
	"sessionid": true,
	"session_id": true,
	"phpsessid": true,
	"jsessionid": true,
}

func isTrackedParam(key string) bool {
	if strings.HasPrefix(key, "utm_") {
		return true
	}
	return trackedQueryParams[strings.ToLower(key)]
}

// CanonicalURL applies spec.md §4.4's URL canonicalization rules:
// lowercase scheme+host, strip default ports, remove tracking params,
// drop fragments, sort remaining query keys lexicographically.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(stripDefaultPort(u.Scheme, u.Host))
	u.Fragment = ""

	if u.RawQuery != "" {
		values := u.Query()
		for key := range values {
			if isTrackedParam(key) {
				values.Del(key)
			}
		}
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sb strings.Builder
		for i, k := range keys {
			for j, v := range values[k] {
				if i > 0 || j > 0 {
					sb.WriteByte('&')
				}
				sb.WriteString(url.QueryEscape(k))
				sb.WriteByte('=')
				sb.WriteString(url.QueryEscape(v))
			}
		}
		u.RawQuery = sb.String()
	}

	return u.String()
}

func stripDefaultPort(scheme, host string) string {
	switch scheme {
	case "http":
		return strings.TrimSuffix(host, ":80")
	case "https":
		return strings.TrimSuffix(host, ":443")
	}
	return host
}

func normalizeExternalID(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// collapseWhitespace trims and collapses runs of whitespace to a single
// space. NFC normalization is intentionally not performed here — no
// example in the corpus imports golang.org/x/text/unicode/norm directly,
// so this stays on strings/unicode stdlib per the dependency-grounding
// rule; see DESIGN.md.
func collapseWhitespace(s string) string {
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}

// normalizeDescription converts any surviving HTML to markdown, collapses
// whitespace, and truncates at the last whitespace boundary before
// maxChars so words are not cut mid-token; if the first maxChars bytes
// hold no space, they are cut at maxChars.
func normalizeDescription(raw string, maxChars int) string {
	text := raw
	if looksLikeHTML(raw) {
		if converted, err := mdConverter.ConvertString(raw); err == nil {
			text = converted
		}
	}

	collapsed := collapseWhitespace(text)
	if maxChars <= 0 || len(collapsed) <= maxChars {
		return collapsed
	}

	truncated := collapsed[:maxChars]
	if idx := strings.LastIndexByte(truncated, ' '); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated
}

func looksLikeHTML(s string) bool {
	return strings.Contains(s, "<") && strings.Contains(s, ">")
}
