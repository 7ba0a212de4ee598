package adapters

import "time"

// postedAtLayouts covers the handful of date shapes career endpoints tend
// to use; an unparseable or empty value simply yields no PostedAt rather
// than failing the posting.
var postedAtLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
}

func parsePostedAt(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range postedAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
