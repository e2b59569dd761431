// Package mocks holds testify mocks of the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/domain"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockWorkflow is a mock of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

var _ domain.Workflow = (*MockWorkflow)(nil)

// NewMockWorkflow creates a mock that asserts its expectations on cleanup.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	mockWorkflow := &MockWorkflow{}
	mockWorkflow.Mock.Test(t)

	t.Cleanup(func() { mockWorkflow.AssertExpectations(t) })

	return mockWorkflow
}

// Detect provides a mock function.
func (_m *MockWorkflow) Detect(args domain.DetectArgs) error {
	ret := _m.Called(args)

	return ret.Error(0)
}

// Inject provides a mock function.
func (_m *MockWorkflow) Inject(args domain.InjectArgs) error {
	ret := _m.Called(args)

	return ret.Error(0)
}

// Trace provides a mock function.
func (_m *MockWorkflow) Trace(args domain.TraceArgs) (m.Report, error) {
	ret := _m.Called(args)

	var report m.Report
	if v := ret.Get(0); v != nil {
		report = v.(m.Report)
	}

	return report, ret.Error(1)
}

// Run provides a mock function.
func (_m *MockWorkflow) Run(ctx context.Context, args domain.RunArgs) ([]m.Report, error) {
	ret := _m.Called(ctx, args)

	var reports []m.Report
	if v := ret.Get(0); v != nil {
		reports = v.([]m.Report)
	}

	return reports, ret.Error(1)
}

// Watch provides a mock function.
func (_m *MockWorkflow) Watch(ctx context.Context, args domain.WatchArgs) error {
	ret := _m.Called(ctx, args)

	return ret.Error(0)
}

// View provides a mock function.
func (_m *MockWorkflow) View(args domain.ViewArgs) error {
	ret := _m.Called(args)

	return ret.Error(0)
}
