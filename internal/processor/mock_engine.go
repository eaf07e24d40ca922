package processor

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockEngine is a mock implementation of Engine for testing.
type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) Size(ctx context.Context, path string) (Size, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(Size), args.Error(1)
}

func (m *MockEngine) Orientation(ctx context.Context, path string) (Orientation, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(Orientation), args.Error(1)
}

func (m *MockEngine) Open(path string) Chain {
	args := m.Called(path)
	return args.Get(0).(Chain)
}

// MockChain is a mock implementation of Chain. Every recording method
// returns the mock itself so calls can be chained as in production.
type MockChain struct {
	mock.Mock
}

func (m *MockChain) Resize(width, height int) Chain {
	m.Called(width, height)
	return m
}

func (m *MockChain) Rotate(bg string, degrees float64) Chain {
	m.Called(bg, degrees)
	return m
}

func (m *MockChain) NoProfile() Chain {
	m.Called()
	return m
}

func (m *MockChain) Stroke(color string, width float64) Chain {
	m.Called(color, width)
	return m
}

func (m *MockChain) Fill(color string) Chain {
	m.Called(color)
	return m
}

func (m *MockChain) Font(name string, size float64) Chain {
	m.Called(name, size)
	return m
}

func (m *MockChain) DrawText(x, y float64, text string, gravity Gravity) Chain {
	m.Called(x, y, text, gravity)
	return m
}

func (m *MockChain) Write(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
