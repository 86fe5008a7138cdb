package cache

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Key hashes (variant, platform, options) into a stable cache key.
// Canonicalization is a correctness requirement, not a performance nicety:
// logically identical requests must collide regardless of parameter order,
// numeric/boolean spelling, or Unicode form, or the cache silently doubles
// recomputation without any visible bug.
func Key(variant, platform string, opts map[string]string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(norm.NFC.String(variant))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(norm.NFC.String(platform))
	_, _ = d.Write([]byte{0})

	pairs := make([][2]string, 0, len(opts))
	for k, v := range opts {
		pairs = append(pairs, [2]string{norm.NFC.String(k), canonValue(v)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	for _, p := range pairs {
		_, _ = d.WriteString(p[0])
		_, _ = d.Write([]byte{0x1f})
		_, _ = d.WriteString(p[1])
		_, _ = d.Write([]byte{0x1e})
	}
	return d.Sum64()
}

// canonValue reduces booleans and numbers to one textual form and
// NFC-normalizes everything else.
func canonValue(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true":
		return "true"
	case "false":
		return "false"
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return norm.NFC.String(v)
}
