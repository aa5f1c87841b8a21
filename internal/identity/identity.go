// Package identity generates the client identifier that correlates this
// process's realtime session with requests it issues over REST.
//
// The identifier is client-asserted: the server learns it from the
// connection path and from the client_id field of REST requests.
package identity

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Prefix starts every generated identifier.
	Prefix = "client_"

	// SuffixLen is the number of random alphanumeric characters.
	SuffixLen = 9

	// suffixSpace is 36^SuffixLen, the number of distinct suffixes.
	suffixSpace = 36 * 36 * 36 * 36 * 36 * 36 * 36 * 36 * 36
)

var pattern = regexp.MustCompile(`^client_[0-9]+_[0-9a-z]{9,}$`)

// Generate returns a new identifier of the form client_<unix-millis>_<suffix>.
func Generate() string {
	return generateAt(time.Now())
}

func generateAt(now time.Time) string {
	var b strings.Builder
	b.Grow(len(Prefix) + 13 + 1 + SuffixLen)
	b.WriteString(Prefix)
	b.WriteString(strconv.FormatInt(now.UnixMilli(), 10))
	b.WriteByte('_')
	b.WriteString(suffix())
	return b.String()
}

// suffix returns SuffixLen random base36 characters.
func suffix() string {
	u := uuid.New()
	// Bytes 8-15 hold 62 random bits; only the two variant bits are fixed.
	n := binary.BigEndian.Uint64(u[8:]) % suffixSpace

	s := strconv.FormatUint(n, 36)
	if len(s) < SuffixLen {
		s = strings.Repeat("0", SuffixLen-len(s)) + s
	}
	return s
}

// Valid reports whether id has the shape produced by Generate.
func Valid(id string) bool {
	return pattern.MatchString(id)
}

// IssuedAt extracts the generation time from an identifier.
func IssuedAt(id string) (time.Time, bool) {
	if !Valid(id) {
		return time.Time{}, false
	}
	rest := strings.TrimPrefix(id, Prefix)
	ms, err := strconv.ParseInt(rest[:strings.IndexByte(rest, '_')], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
