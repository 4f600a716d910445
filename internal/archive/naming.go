package archive

import (
	"regexp"
	"strings"
	"time"
)

// Extension is the archive file suffix.
const Extension = ".tar.gz"

// TimestampLayout encodes creation time at minute resolution with
// fixed-width, zero-padded fields so lexical name order equals
// chronological order.
const TimestampLayout = "2006-01-02-1504"

var timestampPattern = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2}-\d{4})$`)

// Name returns the archive file name for a source basename at the
// given instant, truncated to the minute.
func Name(base string, ts time.Time) string {
	return base + "-" + ts.Truncate(time.Minute).Format(TimestampLayout) + Extension
}

// ParseName extracts the source basename and embedded timestamp from an
// archive file name. ok is false when the name does not follow the
// expected pattern.
func ParseName(name string) (base string, ts time.Time, ok bool) {
	stem, found := strings.CutSuffix(name, Extension)
	if !found {
		return "", time.Time{}, false
	}
	match := timestampPattern.FindStringSubmatchIndex(stem)
	if match == nil {
		return "", time.Time{}, false
	}
	parsed, err := time.ParseInLocation(TimestampLayout, stem[match[2]:match[3]], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:match[0]], parsed, true
}

// IsArchiveName reports whether the file name looks like one of ours.
func IsArchiveName(name string) bool {
	return strings.HasSuffix(name, Extension)
}
