package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// luaRun executes instrumented chunks in one embedded interpreter whose
// print writes to a buffer.
type luaRun struct {
	L   *lua.LState
	out strings.Builder
}

func newLuaRun(t *testing.T) *luaRun {
	t.Helper()

	r := &luaRun{L: lua.NewState()}
	t.Cleanup(r.L.Close)

	r.L.SetGlobal("print", r.L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}

		r.out.WriteString(strings.Join(parts, "\t") + "\n")

		return 0
	}))

	return r
}

func (r *luaRun) do(t *testing.T, chunk string) {
	t.Helper()
	require.NoError(t, r.L.DoString(chunk))
}

func (r *luaRun) lines(substr string) []string {
	var found []string

	for _, line := range strings.Split(r.out.String(), "\n") {
		if strings.Contains(line, substr) {
			found = append(found, line)
		}
	}

	return found
}

func (r *luaRun) captured(t *testing.T, kind m.EntityKind) []m.CapturedEntity {
	t.Helper()

	trace, err := NewTraceParser(config.Default(), zap.NewNop()).Parse(strings.NewReader(r.out.String()))
	require.NoError(t, err)

	store := NewTraceStore(zap.NewNop())
	store.Ingest(trace.Entries)

	return store.ByKind(kind)
}

func (r *luaRun) entities(t *testing.T, kind m.EntityKind) []string {
	t.Helper()

	var values []string
	for _, e := range r.captured(t, kind) {
		values = append(values, e.Value)
	}

	return values
}

const launchScript = `calls = 0
local function a() return 1 end
local function b() return 2 end
v28 = function(code)
  calls = calls + 1
  return { {1, 2}, {"hm"}, nil, {} }
end
local function launch()
  print("hmmmm")
  a() b() a()
  return v28("LOL!0A")
end
return launch()
`

func instrument(t *testing.T, source string) (string, m.InjectionPlan) {
	t.Helper()

	cfg := config.Default()

	return newTestInjector(t, cfg).Inject(source, cfg.Targets(m.SchemeLuaObfuscator))
}

func TestInstrumentedRun_HooksAtTopLevelAndCallsOriginalOnce(t *testing.T) {
	out, plan := instrument(t, launchScript)
	require.Equal(t, "last_return", plan.AnchorName)

	r := newLuaRun(t)
	r.do(t, out)

	assert.Equal(t, lua.LNumber(1), r.L.GetGlobal("calls"))
	assert.Len(t, r.lines("[tracelift] hooked v28"), 1)
	assert.Len(t, r.lines("[tracelift] hooked print"), 1)
	assert.Len(t, r.lines("hmmmm"), 2, "one capture line and the script's own output")
	assert.NotContains(t, r.out.String(), `\t`, "capture lines are never fed back through the wrapped print")

	assert.Contains(t, r.entities(t, m.KindConstant), "hm")
	assert.Contains(t, r.entities(t, m.KindString), "hmmmm")
}

func TestInstrumentedRun_PreludeWrapsOncePerRun(t *testing.T) {
	out, _ := instrument(t, launchScript)

	r := newLuaRun(t)
	r.do(t, out)
	r.do(t, out)
	r.do(t, out)

	assert.Len(t, r.lines("[tracelift] hooked print"), 1)
	assert.Len(t, r.lines("[tracelift] hooked v28"), 1)
	assert.Len(t, r.lines("hmmmm"), 6)
	assert.NotContains(t, r.out.String(), `\t`)

	var seqs []int
	for _, e := range r.captured(t, m.KindString) {
		if e.Value == "hmmmm" {
			seqs = append(seqs, e.RuntimeSeq)
		}
	}

	assert.Equal(t, []int{1, 3, 4}, seqs, "one context keeps counting across runs of the chunk")
}

func TestInstrumentedRun_CapsEmitSuppressionNotes(t *testing.T) {
	src := `v28 = function(code)
  local ops, program, r = {}, {}, {}
  for i = 1, 20 do ops[i] = i end
  program[1] = ops
  r[1] = program
  r[2] = { "hm" }
  for i = 3, 82 do r[i] = i end
  return r
end
return v28("LOL!0A")
`
	out, _ := instrument(t, src)

	r := newLuaRun(t)
	r.do(t, out)

	assert.Len(t, r.lines("[tracelift] 32 more generic suppressed in v28 result1"), 1)
	assert.Len(t, r.lines("[tracelift] 4 more operand suppressed in v28 component1"), 1)
	assert.Contains(t, r.entities(t, m.KindInstruction), "1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16")
}

func TestInstrumentedRun_RaisingOriginalRestoresDepth(t *testing.T) {
	src := `v28 = function(code) error("nope") end
local function launch()
  local ok, err = pcall(v28, "x")
  failed, reason = not ok, err
  print("after")
  return ok
end
return launch()
`
	out, plan := instrument(t, src)
	require.Contains(t, plan.WrappedSymbols, "v28")

	r := newLuaRun(t)
	r.do(t, out)

	assert.Equal(t, lua.LTrue, r.L.GetGlobal("failed"))
	assert.True(t, strings.HasSuffix(r.L.GetGlobal("reason").String(), "nope"))
	assert.Equal(t, lua.LNumber(0), r.L.GetField(r.L.GetGlobal("__tl_0a1b2c3d4e5f"), "depth"))

	after := r.lines("\tafter\t")
	require.Len(t, after, 1)
	assert.True(t, strings.HasPrefix(after[0], "0\t0\tafter\tstring\tprint\targ1\t"), after[0])
}
