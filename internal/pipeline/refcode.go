package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"tradecatalog/internal"
)

const (
	DefaultRefPrefix = "AUTO-"
	DefaultRefWidth  = 5
)

// RefGenerator synthesizes reference codes of the form <Prefix><zero-padded n>.
type RefGenerator struct {
	Prefix string
	Width  int
}

func NewRefGenerator(prefix string, width int) RefGenerator {
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultRefPrefix
	}
	if width <= 0 {
		width = DefaultRefWidth
	}
	return RefGenerator{Prefix: prefix, Width: width}
}

// AssignMissing returns a copy of cands where every blank referencia got a
// code unused by existing and by the rest of the batch. Populated codes are
// never changed.
func (g RefGenerator) AssignMissing(cands []internal.Candidate, existing map[string]struct{}) []internal.Candidate {
	used := make(map[string]struct{}, len(existing)+len(cands))
	for ref := range existing {
		used[ref] = struct{}{}
	}
	for _, c := range cands {
		if c.Referencia != "" {
			used[c.Referencia] = struct{}{}
		}
	}

	out := make([]internal.Candidate, len(cands))
	copy(out, cands)
	next := g.highest(used) + 1
	for i := range out {
		if strings.TrimSpace(out[i].Referencia) != "" {
			continue
		}
		for {
			code := g.format(next)
			next++
			if _, taken := used[code]; taken {
				continue
			}
			used[code] = struct{}{}
			out[i].Referencia = code
			break
		}
	}
	return out
}

func (g RefGenerator) format(n int) string {
	return fmt.Sprintf("%s%0*d", g.Prefix, g.Width, n)
}

func (g RefGenerator) highest(used map[string]struct{}) int {
	top := 0
	for ref := range used {
		suffix, ok := strings.CutPrefix(ref, g.Prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > top {
			top = n
		}
	}
	return top
}
