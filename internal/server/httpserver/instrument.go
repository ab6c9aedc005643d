package httpserver

import (
	"github.com/yndnr/nocsrf-go/internal/telemetry/metric"
	"github.com/yndnr/nocsrf-go/pkg/token"
)

// countingGenerator counts the keys produced by the wrapped generator.
type countingGenerator struct {
	next    token.KeyGenerator
	metrics *metric.Registry
}

// InstrumentKeyGenerator wraps gen so every generated key is counted.
func InstrumentKeyGenerator(gen token.KeyGenerator, metrics *metric.Registry) token.KeyGenerator {
	if gen == nil || metrics == nil {
		return gen
	}
	return &countingGenerator{next: gen, metrics: metrics}
}

func (g *countingGenerator) Generate() (string, error) {
	key, err := g.next.Generate()
	if err == nil {
		g.metrics.KeyGenerated()
	}
	return key, err
}
