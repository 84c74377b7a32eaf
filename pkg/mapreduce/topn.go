package mapreduce

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// TopN returns the n most frequent keys formatted as "key:count" (e.g. "Paris 11e:7").
// Ties are broken alphabetically so the output is stable.
func TopN(counts map[string]int, n int) []string {
	type kv struct {
		Key   string
		Value int
	}

	ss := make([]kv, 0, len(counts))
	for k, v := range counts {
		if strings.TrimSpace(k) == "" {
			continue
		}
		ss = append(ss, kv{k, v})
	}

	slices.SortFunc(ss, func(a, b kv) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})

	limit := max(min(n, len(ss)), 0)

	out := make([]string, limit)
	for i := 0; i < limit; i++ {
		out[i] = fmt.Sprintf("%s:%d", ss[i].Key, ss[i].Value)
	}
	return out
}
