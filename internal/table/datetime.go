package table

import (
	"regexp"
	"strings"
	"time"
)

const (
	// CanonicalLayout is the second-resolution form DateTime columns carry
	// after cleaning.
	CanonicalLayout = "2006-01-02T15:04:05"

	// ISOMillisLayout is the UTC millisecond form the resolver forces onto
	// date-named columns.
	ISOMillisLayout = "2006-01-02T15:04:05.000Z"
)

// datetimePatterns pairs a cheap shape check with the layouts worth trying for
// values of that shape. Order matters: the first layout that parses wins.
var datetimePatterns = []struct {
	pattern *regexp.Regexp
	layouts []string
}{
	// ISO8601 with zone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:?\d{2})$`),
		[]string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999Z0700"},
	},
	// ISO8601 without zone
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(:\d{2}(\.\d+)?)?$`),
		[]string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04"},
	},
	// date and time separated by a space, optional zone (arrow renders
	// timestamps this way)
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:?\d{2})?$`),
		[]string{
			"2006-01-02 15:04:05.999999999",
			"2006-01-02 15:04:05.999999999Z0700",
			"2006-01-02 15:04:05.999999999Z07:00",
			"2006-01-02 15:04",
		},
	},
	{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		[]string{"2006-01-02"},
	},
	{
		regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`),
		[]string{"2006/1/2"},
	},
	{
		regexp.MustCompile(`^\d{8}$`),
		[]string{"20060102"},
	},
	// US
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4} \d{1,2}:\d{2}(:\d{2})?( (AM|PM))?$`),
		[]string{"1/2/2006 15:04:05", "1/2/2006 3:04:05 PM", "1/2/2006 15:04", "1/2/2006 3:04 PM"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		[]string{"1/2/2006"},
	},
	{
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2}$`),
		[]string{"1/2/06"},
	},
	// European
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4} \d{1,2}:\d{2}:\d{2}$`),
		[]string{"2.1.2006 15:04:05"},
	},
	{
		regexp.MustCompile(`^\d{1,2}\.\d{1,2}\.\d{4}$`),
		[]string{"2.1.2006"},
	},
	// textual
	{
		regexp.MustCompile(`^[A-Za-z]{3,9} \d{1,2}, \d{4}$`),
		[]string{"Jan 2, 2006", "January 2, 2006"},
	},
	{
		regexp.MustCompile(`^\d{1,2}-[A-Za-z]{3}-\d{4}$`),
		[]string{"2-Jan-2006"},
	},
}

// ParseTime parses a date or timestamp in any of the recognised layouts.
// Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, dp := range datetimePatterns {
		if !dp.pattern.MatchString(s) {
			continue
		}
		for _, layout := range dp.layouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
