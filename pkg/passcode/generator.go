package passcode

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	minCode = 100000
	maxCode = 999999
)

// Generator produces passcode values.
type Generator interface {
	Generate() (string, error)
}

// RandomGenerator draws codes uniformly from [100000, 999999].
type RandomGenerator struct {
	source io.Reader
}

// NewGenerator creates a generator reading randomness from source.
func NewGenerator(source io.Reader) *RandomGenerator {
	return &RandomGenerator{source: source}
}

// DefaultGenerator creates a generator backed by crypto/rand.
func DefaultGenerator() *RandomGenerator {
	return NewGenerator(rand.Reader)
}

func (g *RandomGenerator) Generate() (string, error) {
	n, err := rand.Int(g.source, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate passcode: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Generate() (string, error) {
	return f()
}
