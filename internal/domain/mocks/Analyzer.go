package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockAnalyzer is a mock of domain.Analyzer.
type MockAnalyzer struct {
	mock.Mock
}

var _ domain.Analyzer = (*MockAnalyzer)(nil)

// NewMockAnalyzer creates a mock that asserts its expectations on cleanup.
func NewMockAnalyzer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAnalyzer {
	mockAnalyzer := &MockAnalyzer{}
	mockAnalyzer.Mock.Test(t)

	t.Cleanup(func() { mockAnalyzer.AssertExpectations(t) })

	return mockAnalyzer
}

// Analyze provides a mock function.
func (_m *MockAnalyzer) Analyze(ctx context.Context, source m.Source, opts domain.AnalyzeOptions) m.Report {
	ret := _m.Called(ctx, source, opts)

	if fn, ok := ret.Get(0).(func(context.Context, m.Source, domain.AnalyzeOptions) m.Report); ok {
		return fn(ctx, source, opts)
	}

	return ret.Get(0).(m.Report)
}

// AnalyzeTrace provides a mock function.
func (_m *MockAnalyzer) AnalyzeTrace(r io.Reader) (m.Report, error) {
	ret := _m.Called(r)

	var report m.Report
	if v := ret.Get(0); v != nil {
		report = v.(m.Report)
	}

	return report, ret.Error(1)
}
