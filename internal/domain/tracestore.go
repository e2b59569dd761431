package domain

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// TraceStore is the append-only log of captured entities for one run.
type TraceStore interface {
	Append(kind m.EntityKind, value string, prov m.Provenance, runtimeSeq int) m.CapturedEntity
	Ingest(entries []m.TraceEntry) int
	Entities() []m.CapturedEntity
	ByKind(kind m.EntityKind) []m.CapturedEntity
	Counts() map[m.EntityKind]int
}

type traceStore struct {
	mu       sync.Mutex
	entities []m.CapturedEntity
	next     map[m.EntityKind]int
	now      func() time.Time
	logger   *zap.Logger
}

// NewTraceStore creates an empty store. Sequence ids start at 1 per kind.
func NewTraceStore(logger *zap.Logger) TraceStore {
	return &traceStore{
		next:   make(map[m.EntityKind]int, len(m.EntityKinds)),
		now:    time.Now,
		logger: logger,
	}
}

func (s *traceStore) Append(kind m.EntityKind, value string, prov m.Provenance, runtimeSeq int) m.CapturedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next[kind]++

	e := m.CapturedEntity{
		SequenceID: s.next[kind],
		RuntimeSeq: runtimeSeq,
		Kind:       kind,
		Value:      value,
		Provenance: prov,
		WallClock:  s.now(),
	}
	s.entities = append(s.entities, e)

	return e
}

// Ingest appends every structured capture line of a parsed trace. Tag
// lines, undecodable values and foreign lines are left out.
func (s *traceStore) Ingest(entries []m.TraceEntry) int {
	n := 0

	for _, e := range entries {
		kind, prov, seq, ok := captureFields(e)
		if !ok {
			continue
		}

		s.Append(kind, e.Kind, prov, seq)
		n++
	}

	s.logger.Debug("trace ingested", zap.Int("entities", n), zap.Int("entries", len(entries)))

	return n
}

func (s *traceStore) Entities() []m.CapturedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]m.CapturedEntity, len(s.entities))
	copy(out, s.entities)

	return out
}

func (s *traceStore) ByKind(kind m.EntityKind) []m.CapturedEntity {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []m.CapturedEntity

	for _, e := range s.entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

func (s *traceStore) Counts() map[m.EntityKind]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[m.EntityKind]int, len(m.EntityKinds))
	for _, k := range m.EntityKinds {
		out[k] = s.next[k]
	}

	return out
}

// captureFields splits the content of a structured capture line:
// kind, source, context, runtime seq, clock.
func captureFields(e m.TraceEntry) (m.EntityKind, m.Provenance, int, bool) {
	if e.Undecodable {
		return "", m.Provenance{}, 0, false
	}

	fields := strings.Split(e.Content, "\t")
	if len(fields) < 3 {
		return "", m.Provenance{}, 0, false
	}

	kind := m.EntityKind(fields[0])
	if !kind.Valid() {
		return "", m.Provenance{}, 0, false
	}

	seq := 0
	if len(fields) > 3 {
		seq, _ = strconv.Atoi(fields[3])
	}

	return kind, m.Provenance{Source: fields[1], Context: fields[2]}, seq, true
}

func isCaptureLine(e m.TraceEntry) bool {
	_, _, _, ok := captureFields(e)

	return ok
}

// isTagLine reports an operation tag written by a char or concat wrapper.
func isTagLine(e m.TraceEntry) bool {
	return (e.Kind == tagChar || e.Kind == tagConcat) && !isCaptureLine(e)
}
