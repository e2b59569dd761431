package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIgnoreDirective(t *testing.T) {
	tests := []struct {
		name    string
		comment string
		ok      bool
		all     bool
		names   []string
	}{
		{name: "bare directive ignores everything", comment: "-- tracelift:ignore", ok: true, all: true},
		{name: "symbol list", comment: "-- tracelift:ignore v28, print", ok: true, names: []string{"v28", "print"}},
		{name: "block comment", comment: "--[[ tracelift:ignore string.char ]]", ok: true, names: []string{"string.char"}},
		{name: "case preserved", comment: "-- tracelift:ignore HuDWadUZyHyr", ok: true, names: []string{"HuDWadUZyHyr"}},
		{name: "separators only", comment: "-- tracelift:ignore , ,", ok: true, all: true},
		{name: "other comment", comment: "-- just a note", ok: false},
		{name: "not a comment", comment: "local x = 1", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := parseIgnoreDirective(tt.comment)
			require.Equal(t, tt.ok, ok)

			if !ok {
				return
			}

			assert.Equal(t, tt.all, rule.all)

			for _, n := range tt.names {
				assert.True(t, rule.ignores(n), n)
			}
		})
	}
}

func TestBuildIgnoreRule_MergesDirectives(t *testing.T) {
	src := "-- tracelift:ignore v28\nlocal v28 = 1\n  -- tracelift:ignore print\nprint(v28)\n"

	rule := buildIgnoreRule(src)

	assert.False(t, rule.all)
	assert.True(t, rule.ignores("v28"))
	assert.True(t, rule.ignores("print"))
	assert.False(t, rule.ignores("v29"))
}

func TestBuildIgnoreRule_AllWins(t *testing.T) {
	rule := buildIgnoreRule("-- tracelift:ignore v28\n-- tracelift:ignore\n")

	assert.True(t, rule.all)
	assert.True(t, rule.ignores("anything"))
}

func TestBuildIgnoreRule_NoDirective(t *testing.T) {
	rule := buildIgnoreRule("print('x')\n")

	assert.False(t, rule.ignores("print"))
}
