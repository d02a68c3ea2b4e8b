package adapter

import (
	"fmt"
	"io"
)

// IO defines an interface for IO operations to enable mocking
//
//go:generate mockgen -source=io.go -destination=../mocks/io.go -package=mocks -mock_names=IO=MockIO
type IO interface {
	ReadAll(r io.Reader) ([]byte, error)
	// ReadAllLimited reads at most limit bytes and fails when r holds more
	ReadAllLimited(r io.Reader, limit int64) ([]byte, error)
}

// RealIO implements IO using the standard io package
type RealIO struct{}

// NewIO creates a new real IO implementation
func NewIO() IO {
	return &RealIO{}
}

func (i *RealIO) ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

func (i *RealIO) ReadAllLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("payload exceeds %d bytes", limit)
	}
	return data, nil
}
