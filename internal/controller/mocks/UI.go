// Package mocks holds testify mocks of the controller interfaces.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/mouse-blink/tracelift/internal/controller"
	m "github.com/mouse-blink/tracelift/internal/model"
)

// MockUI is a mock of controller.UI.
type MockUI struct {
	mock.Mock
}

var _ controller.UI = (*MockUI)(nil)

// NewMockUI creates a mock that asserts its expectations on cleanup.
func NewMockUI(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockUI {
	mockUI := &MockUI{}
	mockUI.Mock.Test(t)

	t.Cleanup(func() { mockUI.AssertExpectations(t) })

	return mockUI
}

// Start provides a mock function.
func (_m *MockUI) Start(options ...controller.StartOption) error {
	args := make([]interface{}, 0, len(options))
	for _, opt := range options {
		args = append(args, opt)
	}

	ret := _m.Called(args...)

	return ret.Error(0)
}

// Close provides a mock function.
func (_m *MockUI) Close() {
	_m.Called()
}

// Wait provides a mock function.
func (_m *MockUI) Wait() {
	_m.Called()
}

// DisplayDetection provides a mock function.
func (_m *MockUI) DisplayDetection(path m.Path, result m.DetectionResult) {
	_m.Called(path, result)
}

// DisplayInjection provides a mock function.
func (_m *MockUI) DisplayInjection(path m.Path, instrumented m.Path, plan m.InjectionPlan) {
	_m.Called(path, instrumented, plan)
}

// DisplayRunInfo provides a mock function.
func (_m *MockUI) DisplayRunInfo(files int, parallel int) {
	_m.Called(files, parallel)
}

// DisplayAnalysisStarted provides a mock function.
func (_m *MockUI) DisplayAnalysisStarted(path m.Path) {
	_m.Called(path)
}

// DisplayAnalysisCompleted provides a mock function.
func (_m *MockUI) DisplayAnalysisCompleted(report m.Report, saved []m.Path) {
	_m.Called(report, saved)
}

// DisplayReport provides a mock function.
func (_m *MockUI) DisplayReport(report m.Report) error {
	ret := _m.Called(report)

	return ret.Error(0)
}
