package mocks

import (
	"io"

	"github.com/brettbedarf/treefs"
	"github.com/stretchr/testify/mock"
)

// MockOperator implements treefs.Operator for testing across packages
type MockOperator struct {
	mock.Mock
}

var _ treefs.Operator = (*MockOperator)(nil)

func (m *MockOperator) Lookup(path string) (treefs.Inumber, error) {
	args := m.Called(path)
	return args.Get(0).(treefs.Inumber), args.Error(1)
}

func (m *MockOperator) Stat(path string) (treefs.Inumber, treefs.Kind, error) {
	args := m.Called(path)
	return args.Get(0).(treefs.Inumber), args.Get(1).(treefs.Kind), args.Error(2)
}

func (m *MockOperator) ReadDir(path string) ([]treefs.Entry, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]treefs.Entry), args.Error(1)
}

func (m *MockOperator) Create(path string, kind treefs.Kind) error {
	args := m.Called(path, kind)
	return args.Error(0)
}

func (m *MockOperator) Delete(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockOperator) Move(from, to string) error {
	args := m.Called(from, to)
	return args.Error(0)
}

func (m *MockOperator) SerializeTree(w io.Writer) error {
	args := m.Called(w)

	// Handle function return types so tests can write a tree
	if fn, ok := args.Get(0).(func(io.Writer) error); ok {
		return fn(w)
	}
	return args.Error(0)
}
