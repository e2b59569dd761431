package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"text/template"

	m "github.com/mouse-blink/tracelift/internal/model"
)

// The prelude keeps every helper on one private table so the host chunk only
// gains a single local. The output primitive is aliased in the first
// statement; every later line goes through that alias. The table is
// published in _G before any symbol is wrapped, and a prelude that finds it
// already published does nothing, so wrapping happens at most once per run.
const preludeTemplate = `-- tracelift instrumentation {{.Ctx.RunID}} begin
if not (_G and _G["{{.T}}"]) then
local {{.T}} = { out = {{.Ctx.OutputPrimitive}} }
{{.T}}.tostring, {{.T}}.type, {{.T}}.pairs, {{.T}}.ipairs = tostring, type, pairs, ipairs
{{.T}}.select, {{.T}}.pcall, {{.T}}.setmetatable = select, pcall, setmetatable
{{.T}}.gsub, {{.T}}.byte, {{.T}}.format, {{.T}}.concat = string.gsub, string.byte, string.format, table.concat
{{.T}}.unpack, {{.T}}.raise = table.unpack or unpack, error
{{.T}}.clock = (os and os.clock) or function() return 0 end
{{.T}}.run = "{{.Ctx.RunID}}"
{{.T}}.depth = 0
{{.T}}.busy = false
{{.T}}.done = false
{{.T}}.max_depth = {{.Ctx.MaxDepth}}
{{.T}}.operands = 16
{{.T}}.seq = { ["string"] = 0, ["function"] = 0, ["constant"] = 0, ["instruction"] = 0 }
{{.T}}.limits = { {{range .Ctx.SortedLimits}}["{{.Kind}}"] = {{.Max}}, {{end}}}
{{.T}}.write = function(line)
{{- if .Ctx.PrimitiveAppendsNewline}}
  {{.T}}.out(line)
{{- else}}
  {{.T}}.out(line .. "\n")
{{- end}}
end
{{.T}}.escape = function(s)
  local c = {{.T}}
  s = c.gsub(s, "\\", "\\\\")
  s = c.gsub(s, "\t", "\\t")
  s = c.gsub(s, "\n", "\\n")
  s = c.gsub(s, "\r", "\\r")
  s = c.gsub(s, "[%c\128-\255]", function(ch) return c.format("\\%03d", c.byte(ch)) end)
  return s
end
{{.T}}.note = function(msg)
  {{.T}}.write("[tracelift] " .. msg)
end
{{.T}}.emit = function(level, value, kind, source, context)
  local c = {{.T}}
  c.seq[kind] = c.seq[kind] + 1
  c.write(c.depth .. "\t" .. level .. "\t" .. c.escape(value) .. "\t" .. kind .. "\t" .. source .. "\t" .. context .. "\t" .. c.seq[kind] .. "\t" .. c.format("%.3f", c.clock()))
end
{{.T}}.tag = function(level, tag, value)
  local c = {{.T}}
  c.write(c.depth .. "\t" .. level .. "\t" .. tag .. "\t" .. c.escape(value))
end
{{.T}}.limit = function(kind)
  local c = {{.T}}
  return c.limits[kind] or c.limits["generic"]
end
{{.T}}.flatten = function(item, source, context)
  local c = {{.T}}
  if c.type(item) ~= "table" then return c.tostring(item) end
  local parts, n = {}, 0
  for _, x in c.ipairs(item) do
    n = n + 1
    if n <= c.operands then parts[n] = c.tostring(x) end
  end
  if n > c.operands then c.note((n - c.operands) .. " more operand suppressed in " .. source .. " " .. context) end
  return c.concat(parts, " ")
end
{{.T}}.capture = function(item, kind, source, context, level)
  local c = {{.T}}
  local t = c.type(item)
  if kind == "instruction" then
    c.emit(level, c.flatten(item, source, context), "instruction", source, context)
  elseif kind == "function" and t == "function" then
    c.emit(level, c.tostring(item), "function", source, context)
  elseif kind == "constant" and (t == "number" or t == "boolean" or t == "string") then
    c.emit(level, c.tostring(item), "constant", source, context)
    if t == "string" and #item > 0 then c.emit(level, item, "string", source, context .. "_constant") end
  else
    c.inspect(item, source, context, level)
  end
end
{{.T}}.collect = function(tbl, kind, source, context, level)
  local c = {{.T}}
  local cap, n = c.limit(kind), 0
  for _, item in c.pairs(tbl) do
    n = n + 1
    if n <= cap then c.capture(item, kind, source, context, level) end
  end
  if n > cap then c.note((n - cap) .. " more " .. kind .. " suppressed in " .. source .. " " .. context) end
end
{{.T}}.inspect = function(v, source, context, level)
  local c = {{.T}}
  local t = c.type(v)
  if t == "string" then
    if #v > 0 then c.emit(level, v, "string", source, context) end
  elseif t == "number" or t == "boolean" then
    c.emit(level, c.tostring(v), "constant", source, context)
  elseif t == "function" then
    c.emit(level, c.tostring(v), "function", source, context)
  elseif t == "table" then
    if level >= c.max_depth then return end
    local cap, n = c.limit("generic"), 0
    for _, item in c.pairs(v) do
      n = n + 1
      if n <= cap then c.inspect(item, source, context, level + 1) end
    end
    if n > cap then c.note((n - cap) .. " more generic suppressed in " .. source .. " " .. context) end
  end
end
{{.T}}.observe = function(values, source, phase, layout)
  local c = {{.T}}
  for i = 1, values.n do
    local v = values[i]
    if layout and c.type(v) == "table" then
      local cap, n = c.limit("generic"), 0
      for k, item in c.pairs(v) do
        n = n + 1
        if n <= cap then
          local kind = layout[k]
          if kind and c.type(item) == "table" then
            c.collect(item, kind, source, "component" .. c.tostring(k), 1)
          elseif kind then
            c.capture(item, kind, source, "component" .. c.tostring(k), 1)
          else
            c.inspect(item, source, phase .. i, 1)
          end
        end
      end
      if n > cap then c.note((n - cap) .. " more generic suppressed in " .. source .. " " .. phase .. i) end
    else
      c.inspect(v, source, phase .. i, 0)
    end
  end
end
{{.T}}.pack = function(...)
  return { n = {{.T}}.select("#", ...), ... }
end
{{.T}}.finish = function(ok, ...)
  local c = {{.T}}
  c.depth = c.depth - 1
  if not ok then c.raise((...), 0) end
  return c.pack(...)
end
{{.T}}.wrap = function(name, original, mode, tag, layout)
  local c = {{.T}}
  return function(...)
    if not c.busy and (mode == "args" or mode == "both") then
      c.busy = true
      c.pcall(c.observe, c.pack(...), name, "arg", layout)
      c.busy = false
    end
    c.depth = c.depth + 1
    local results = c.finish(c.pcall(original, ...))
    if not c.busy then
      c.busy = true
      if tag ~= "" and c.type(results[1]) == "string" then c.pcall(c.tag, 0, tag, results[1]) end
      if mode == "result" or mode == "both" then c.pcall(c.observe, results, name, "result", layout) end
      c.busy = false
    end
    return c.unpack(results, 1, results.n)
  end
end
{{.T}}.summary = function()
  local c = {{.T}}
  if c.done then return end
  c.done = true
  c.note("summary run=" .. c.run .. " string=" .. c.seq["string"] .. " function=" .. c.seq["function"] .. " constant=" .. c.seq["constant"] .. " instruction=" .. c.seq["instruction"])
end
{{.T}}.sentinel = {{.T}}.setmetatable({}, { __gc = function() {{.T}}.pcall({{.T}}.summary) end })
if _G then _G["{{.T}}"] = {{.T}} end
{{range .Wraps}}{{.}}
{{end}}end
-- tracelift instrumentation {{.Ctx.RunID}} end`

const wrapTemplate = `if {{.Guard}} then {{.Symbol}} = {{.T}}.wrap("{{.Symbol}}", {{.Symbol}}, "{{.Mode}}", "{{.Tag}}", {{.Layout}}) {{.T}}.note("hooked {{.Symbol}}") end`

const trailerTemplate = `
-- tracelift trailer {{.Ctx.RunID}}
if _G and _G["{{.T}}"] then _G["{{.T}}"].summary() end
`

var (
	preludeTmpl = template.Must(template.New("prelude").Parse(preludeTemplate))
	wrapTmpl    = template.Must(template.New("wrap").Parse(wrapTemplate))
	trailerTmpl = template.Must(template.New("trailer").Parse(trailerTemplate))
)

// inspectNone leaves tag lines as the only output of a wrapper.
const inspectNone m.InspectMode = "none"

type preludeData struct {
	Ctx   *TraceContext
	T     string
	Wraps []string
}

type wrapData struct {
	T      string
	Symbol string
	Guard  string
	Mode   m.InspectMode
	Tag    string
	Layout string
}

func renderWrapper(tc *TraceContext, target m.TargetSymbol) (string, error) {
	mode := target.Inspect

	switch {
	case mode == "" && target.Tag != "":
		mode = inspectNone
	case mode == "":
		mode = m.InspectResult
	}

	data := wrapData{
		T:      tc.Table,
		Symbol: target.Symbol,
		Guard:  symbolGuard(target.Symbol),
		Mode:   mode,
		Tag:    target.Tag,
		Layout: luaLayout(target.Layout),
	}

	var b strings.Builder
	if err := wrapTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render wrapper %s: %w", target.Symbol, err)
	}

	return b.String(), nil
}

func renderPrelude(tc *TraceContext, wraps []string) (string, error) {
	var b strings.Builder
	if err := preludeTmpl.Execute(&b, preludeData{Ctx: tc, T: tc.Table, Wraps: wraps}); err != nil {
		return "", fmt.Errorf("render prelude: %w", err)
	}

	return b.String(), nil
}

func renderTrailer(tc *TraceContext) (string, error) {
	var b strings.Builder
	if err := trailerTmpl.Execute(&b, preludeData{Ctx: tc, T: tc.Table}); err != nil {
		return "", fmt.Errorf("render trailer: %w", err)
	}

	return b.String(), nil
}

// symbolGuard builds "a ~= nil and a.b ~= nil" for a dotted name path.
func symbolGuard(symbol string) string {
	parts := strings.Split(symbol, ".")
	guards := make([]string, 0, len(parts))

	for i := range parts {
		guards = append(guards, strings.Join(parts[:i+1], ".")+" ~= nil")
	}

	return strings.Join(guards, " and ")
}

func luaLayout(layout map[int]m.EntityKind) string {
	if len(layout) == 0 {
		return "nil"
	}

	idx := make([]int, 0, len(layout))
	for i := range layout {
		idx = append(idx, i)
	}

	sort.Ints(idx)

	parts := make([]string, 0, len(idx))
	for _, i := range idx {
		parts = append(parts, fmt.Sprintf("[%d] = %q", i, string(layout[i])))
	}

	return "{ " + strings.Join(parts, ", ") + " }"
}

// checkCapabilityCapture verifies that the generated code aliases the output
// primitive before anything can rebind it and that the emit path never
// reaches the public primitive name. A second pass over the prelude would
// alias an already wrapped primitive, so the alias must sit behind the run
// guard and the guard must be armed before the first wrapper is installed.
func checkCapabilityCapture(tc *TraceContext, instrumentation string) error {
	alias := "local " + tc.Table + " = { out = " + tc.OutputPrimitive + " }"

	aliasAt := strings.Index(instrumentation, alias)
	if aliasAt < 0 {
		return fmt.Errorf("output primitive %s is not aliased", tc.OutputPrimitive)
	}

	guardAt := strings.Index(instrumentation, runGuard(tc))
	if guardAt < 0 || guardAt > aliasAt {
		return fmt.Errorf("output alias for %s is not guarded against re-entry", tc.OutputPrimitive)
	}

	armedAt := strings.Index(instrumentation, runGuardArm(tc))
	if armedAt < aliasAt {
		return fmt.Errorf("re-entry guard for run %s is never armed", tc.RunID)
	}

	if wrapAt := strings.Index(instrumentation, tc.Table+".wrap(\""); wrapAt >= 0 && wrapAt < armedAt {
		return fmt.Errorf("symbols are wrapped before the re-entry guard for run %s is armed", tc.RunID)
	}

	rebind := regexp.MustCompile(`(?m)(^|\s)` + regexp.QuoteMeta(tc.OutputPrimitive) + `\s*=[^=]`)
	if loc := rebind.FindStringIndex(instrumentation); loc != nil && loc[0] < aliasAt {
		return fmt.Errorf("output primitive %s is rebound before it is aliased", tc.OutputPrimitive)
	}

	call := regexp.MustCompile(`(^|[^.\w])` + regexp.QuoteMeta(tc.OutputPrimitive) + `\s*\(`)

	for _, fn := range []string{"write", "emit", "tag", "note"} {
		body := luaFunctionBody(instrumentation, tc.Table+"."+fn+" = function(")
		if body == "" {
			return fmt.Errorf("helper %s missing from instrumentation", fn)
		}

		if call.MatchString(body) {
			return fmt.Errorf("helper %s calls %s directly", fn, tc.OutputPrimitive)
		}
	}

	return nil
}

func runGuard(tc *TraceContext) string {
	return `if not (_G and _G["` + tc.Table + `"]) then`
}

func runGuardArm(tc *TraceContext) string {
	return `if _G then _G["` + tc.Table + `"] = ` + tc.Table + ` end`
}

// luaFunctionBody returns the text between a helper header and the first
// line consisting of "end".
func luaFunctionBody(code, header string) string {
	start := strings.Index(code, header)
	if start < 0 {
		return ""
	}

	rest := code[start+len(header):]
	if end := strings.Index(rest, "\nend\n"); end >= 0 {
		return rest[:end]
	}

	return rest
}
