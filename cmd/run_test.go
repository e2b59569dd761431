package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

func TestRunCmd_PassesOptions(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)
	cmd, _ := newTestRoot(newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Parallel == 2 &&
			args.Options.Timeout == 5*time.Second &&
			args.Options.StaticOnly &&
			len(args.Paths) == 1 && args.Paths[0] == m.Path("./...")
	})).Return([]m.Report{{Outcome: m.OutcomeStaticOnly}}, nil)

	cmd.SetArgs([]string{"run", "-p", "2", "--timeout", "5s", "--static-only", "./..."})
	err := cmd.Execute()

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 4, exit.ExitCode())
}

func TestRunCmd_WorstOutcomeDecidesExit(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)
	cmd, _ := newTestRoot(newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.Anything).Return([]m.Report{
		{Outcome: m.OutcomeSuccess},
		{Outcome: m.OutcomeTimeout},
		{Outcome: m.OutcomeInconclusive},
	}, nil)

	cmd.SetArgs([]string{"run", "a.lua", "b.lua", "c.lua"})
	err := cmd.Execute()

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
}

func TestRunCmd_DefaultsAndErrors(t *testing.T) {
	mockWorkflow := withMockWorkflow(t)
	cmd, _ := newTestRoot(newRunCmd())

	mockWorkflow.On("Run", mock.Anything, mock.MatchedBy(func(args domain.RunArgs) bool {
		return args.Parallel == 1 && args.Options.Timeout == 0 && len(args.Paths) == 0
	})).Return(nil, domain.ErrInputUnreadable)

	cmd.SetArgs([]string{"run"})
	err := cmd.Execute()

	assert.True(t, errors.Is(err, domain.ErrInputUnreadable))
	assert.Equal(t, 1, exitCode(err, cmd))
}

func TestNewRunCmd(t *testing.T) {
	cmd := newRunCmd()

	assert.Equal(t, "run [paths...]", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Equal(t, runLongDescription, cmd.Long)

	for _, name := range []string{"parallel", "timeout", "static-only"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}
