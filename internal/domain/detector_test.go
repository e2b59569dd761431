package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mouse-blink/tracelift/internal/config"
	m "github.com/mouse-blink/tracelift/internal/model"
)

func newTestDetector(t *testing.T) Detector {
	t.Helper()

	return NewDetector(config.Default(), zap.NewNop())
}

func TestDetector_LuaObfuscatorSignature(t *testing.T) {
	src := "-- This file was obfuscated using LuaObfuscator.com (Alpha 0.10.7)\n" + vmScript

	got := newTestDetector(t).Detect(src)

	assert.Equal(t, m.SchemeLuaObfuscator, got.Scheme)
	assert.Equal(t, "Alpha 0.10.7", got.Version)
	assert.True(t, got.HasMatch("luaobfuscator_signature"))
	assert.True(t, got.HasMatch("vm_functions"))
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
	assert.True(t, got.Survey.TargetsFound["v28"])
	assert.False(t, got.Survey.TargetsFound["v29"])
}

func TestDetector_HerculesVersion(t *testing.T) {
	src := "--[[ Protected by Hercules v1.6.2 ]]\nlocal x = HuDWadUZyHyr(\"abc\")\n"

	got := newTestDetector(t).Detect(src)

	assert.Equal(t, m.SchemeHercules, got.Scheme)
	assert.Equal(t, "1.6.2", got.Version)
	assert.True(t, got.HasMatch("hercules_string_decoder"))
}

func TestDetector_GenericByStructure(t *testing.T) {
	src := `local v1 = string.char(104, 109)
local v2 = table.concat({v1, "x"})
local e = getfenv or function() return _ENV end
print(v2 .. "68656c6c6f20")
`

	got := newTestDetector(t).Detect(src)

	assert.Equal(t, m.SchemeGeneric, got.Scheme)
	assert.Greater(t, got.Confidence, config.Default().Detection.GenericThreshold)
	assert.Empty(t, got.Version)
	assert.Equal(t, 2, got.Survey.Variables)
}

func TestDetector_PlainScriptIsUnknown(t *testing.T) {
	got := newTestDetector(t).Detect("print('hi')\n")

	assert.Equal(t, m.SchemeUnknown, got.Scheme)
	assert.Zero(t, got.Confidence)
	assert.NotNil(t, got.Matched)
	assert.Empty(t, got.Matched)
}

func TestDetector_ConfidenceIsCapped(t *testing.T) {
	src := "-- This file was obfuscated using LuaObfuscator.com\n" +
		"-- https://www.ferib.dev/\n" +
		"-- Hercules v1.0 HuDWadUZyHyr( SVkOeWirtS iLkvhyKfZlmz\n" +
		vmScript

	got := newTestDetector(t).Detect(src)

	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, m.SchemeLuaObfuscator, got.Scheme, "equal signature weights keep catalogue order")
}

func TestDetector_DropsInvalidIndicator(t *testing.T) {
	cfg := config.Default()
	cfg.Indicators = append(cfg.Indicators, m.Indicator{Name: "broken", Pattern: "(", Weight: 1})

	d, ok := NewDetector(cfg, zap.NewNop()).(*detector)
	require.True(t, ok)

	assert.Len(t, d.indicators, len(cfg.Indicators)-1)
	assert.False(t, d.Detect("(").HasMatch("broken"))
}
