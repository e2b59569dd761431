package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

const (
	tagChar   = "char"
	tagConcat = "concat"
)

var readableRun = regexp.MustCompile(`[a-zA-Z0-9\s.,!?]+`)

// Reconstructor ranks candidate sources from a classified trace. An empty
// result is a valid answer and means the run was inconclusive.
type Reconstructor interface {
	Reconstruct(trace m.Trace) []m.Candidate
}

type heuristic struct {
	name m.Heuristic
	fn   func(m.Trace) []string
}

type reconstructor struct {
	classifier Classifier
	scorer     scorer
	primitive  string
	tailWindow int
	minToken   int
	stopwords  map[string]struct{}
	heuristics []heuristic
	logger     *zap.Logger
}

// NewReconstructor wires the four heuristics in their merge order.
func NewReconstructor(cfg *config.Config, logger *zap.Logger) Reconstructor {
	r := &reconstructor{
		classifier: NewClassifier(cfg.Reconstruct),
		scorer:     newScorer(cfg.Reconstruct.Scoring, logger),
		primitive:  cfg.Capture.OutputPrimitive,
		tailWindow: cfg.Reconstruct.TailWindow,
		minToken:   cfg.Reconstruct.MinTokenLen,
		stopwords:  make(map[string]struct{}, len(cfg.Reconstruct.Stopwords)),
		logger:     logger,
	}

	if !luaNamePath.MatchString(r.primitive) {
		r.primitive = "print"
	}

	if r.tailWindow <= 0 {
		r.tailWindow = 10
	}

	for _, w := range cfg.Reconstruct.Stopwords {
		r.stopwords[w] = struct{}{}
	}

	r.heuristics = []heuristic{
		{name: m.HeuristicDirect, fn: r.direct},
		{name: m.HeuristicGrouped, fn: r.grouped},
		{name: m.HeuristicTailWindow, fn: r.tail},
		{name: m.HeuristicContentToken, fn: r.tokens},
	}

	return r
}

func (r *reconstructor) Reconstruct(trace m.Trace) []m.Candidate {
	seen := make(map[string]struct{})
	candidates := []m.Candidate{}

	for _, h := range r.heuristics {
		for _, lit := range r.run(h, trace) {
			if _, dup := seen[lit]; dup {
				continue
			}

			seen[lit] = struct{}{}
			candidates = append(candidates, m.Candidate{
				Text:            r.render(lit),
				Literal:         lit,
				Score:           r.scorer.score(lit),
				OriginHeuristic: h.name,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	r.logger.Debug("reconstructed", zap.Int("candidates", len(candidates)))

	return candidates
}

// run isolates a heuristic so that a panic degrades to no contribution.
func (r *reconstructor) run(h heuristic, trace m.Trace) (out []string) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("heuristic failed", zap.String("heuristic", string(h.name)), zap.Any("panic", p))

			out = nil
		}
	}()

	return h.fn(trace)
}

func (r *reconstructor) direct(trace m.Trace) []string {
	out := make([]string, 0, len(trace.FinalStrings))
	for _, e := range trace.FinalStrings {
		out = append(out, e.Kind)
	}

	return out
}

type groupKey struct{ depth, level int }

type group struct {
	char, concat bool
	fragments    []string
}

// grouped joins the readable runs of string.char results that share a
// (depth, level) with a table.concat result.
func (r *reconstructor) grouped(trace m.Trace) []string {
	var order []groupKey

	groups := make(map[groupKey]*group)

	for _, e := range trace.Entries {
		if e.Kind != tagChar && e.Kind != tagConcat {
			continue
		}

		k := groupKey{e.Depth, e.Level}

		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}

		if e.Kind == tagConcat {
			g.concat = true
			continue
		}

		g.char = true

		frag, err := unescapeWire(e.Content)
		if err != nil {
			continue
		}

		g.fragments = append(g.fragments, readableRun.FindAllString(frag, -1)...)
	}

	var out []string

	for _, k := range order {
		g := groups[k]
		if !g.char || !g.concat {
			continue
		}

		if s := strings.TrimSpace(strings.Join(g.fragments, "")); s != "" {
			out = append(out, s)
		}
	}

	return out
}

// tail rescans the last entries after a stable (depth, level) sort.
func (r *reconstructor) tail(trace m.Trace) []string {
	sorted := make([]m.TraceEntry, len(trace.Entries))
	copy(sorted, trace.Entries)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Depth != sorted[j].Depth {
			return sorted[i].Depth < sorted[j].Depth
		}

		return sorted[i].Level < sorted[j].Level
	})

	if len(sorted) > r.tailWindow {
		sorted = sorted[len(sorted)-r.tailWindow:]
	}

	var out []string

	for _, e := range sorted {
		if !e.Undecodable && !isTagLine(e) && r.classifier.IsFinalOutput(e.Kind) {
			out = append(out, e.Kind)
		}
	}

	return out
}

// tokens scans free-form content. Capture metadata and operation tags
// written by the hooks are not free-form and are left out.
func (r *reconstructor) tokens(trace m.Trace) []string {
	var out []string

	for _, e := range trace.Entries {
		if e.Content == "" || isCaptureLine(e) || isTagLine(e) {
			continue
		}

		for _, tok := range strings.Fields(e.Content) {
			if len(tok) < r.minToken {
				continue
			}

			if _, stop := r.stopwords[tok]; stop {
				continue
			}

			if r.classifier.IsFinalOutput(tok) {
				out = append(out, tok)
			}
		}
	}

	return out
}

func (r *reconstructor) render(literal string) string {
	return fmt.Sprintf("%s(%s)", r.primitive, quoteLua(literal))
}

func quoteLua(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('"')

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&b, `\%03d`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}

	b.WriteByte('"')

	return b.String()
}
