package engine

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Generator produces a non-negative value on demand: a key/value size in
// bytes, or an inter-arrival delay in seconds. Implementations are not
// required to be safe for concurrent use — each Connection owns its own
// generators (spec.md §5: "Random generators may be per-connection").
type Generator interface {
	Generate() float64
}

// NewGenerator builds a Generator from a spec string, mirroring the
// source's createGenerator contract (spec.md §2, C2). Recognized forms:
//
//	"0"                        constant zero (as-fast-as-possible IA)
//	"fixed:<v>"                constant v
//	"uniform:<min>:<max>"      uniform over [min, max)
//	"normal:<mean>:<stddev>"   normal, clamped to >= 0
//	"exponential"              exponential with lambda set separately via SetLambda
//	"zipfian:<theta>"          Zipfian over key popularity (enrichment, see SPEC_FULL.md §4.1)
func NewGenerator(spec string, rng *rand.Rand) (Generator, error) {
	spec = strings.TrimSpace(spec)
	if spec == "0" || spec == "" {
		return &fixedGenerator{value: 0}, nil
	}
	parts := strings.Split(spec, ":")
	switch parts[0] {
	case "fixed":
		if len(parts) != 2 {
			return nil, fmt.Errorf("fixed generator wants fixed:<value>, got %q", spec)
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("fixed generator: %w", err)
		}
		return &fixedGenerator{value: v}, nil
	case "uniform":
		if len(parts) != 3 {
			return nil, fmt.Errorf("uniform generator wants uniform:<min>:<max>, got %q", spec)
		}
		lo, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("uniform generator min: %w", err)
		}
		hi, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("uniform generator max: %w", err)
		}
		return &uniformGenerator{min: lo, max: hi, rng: rng}, nil
	case "normal":
		if len(parts) != 3 {
			return nil, fmt.Errorf("normal generator wants normal:<mean>:<stddev>, got %q", spec)
		}
		mean, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("normal generator mean: %w", err)
		}
		stddev, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("normal generator stddev: %w", err)
		}
		return &normalGenerator{mean: mean, stddev: stddev, rng: rng}, nil
	case "exponential":
		return &exponentialGenerator{lambda: 1.0, rng: rng}, nil
	case "zipfian":
		if len(parts) != 2 {
			return nil, fmt.Errorf("zipfian generator wants zipfian:<theta>, got %q", spec)
		}
		theta, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("zipfian generator theta: %w", err)
		}
		return &zipfianGenerator{theta: theta, rng: rng}, nil
	default:
		return nil, fmt.Errorf("unknown generator %q", spec)
	}
}

// Lambda is implemented by generators whose mean rate must be set
// externally once (exponential's IA use, spec.md §4's options.lambda).
type Lambda interface {
	SetLambda(lambda float64)
}

type fixedGenerator struct{ value float64 }

func (g *fixedGenerator) Generate() float64 { return g.value }

type uniformGenerator struct {
	min, max float64
	rng      *rand.Rand
}

func (g *uniformGenerator) Generate() float64 {
	if g.max <= g.min {
		return g.min
	}
	return g.min + g.rng.Float64()*(g.max-g.min)
}

type normalGenerator struct {
	mean, stddev float64
	rng          *rand.Rand
}

func (g *normalGenerator) Generate() float64 {
	v := g.rng.NormFloat64()*g.stddev + g.mean
	if v < 0 {
		return 0
	}
	return v
}

type exponentialGenerator struct {
	lambda float64
	rng    *rand.Rand
}

func (g *exponentialGenerator) SetLambda(lambda float64) { g.lambda = lambda }

func (g *exponentialGenerator) Generate() float64 {
	if g.lambda <= 0 {
		return 0
	}
	return g.rng.ExpFloat64() / g.lambda
}

// zipfianGenerator draws key-popularity-skewed indices scaled into
// [0, 1); it is used for key/value size distributions just like the
// others, not exclusively for keys, so it still satisfies Generator.
type zipfianGenerator struct {
	theta float64
	rng   *rand.Rand
}

func (g *zipfianGenerator) Generate() float64 {
	if g.theta <= 0 {
		return g.rng.Float64()
	}
	u := g.rng.Float64()
	return math.Pow(u, 1.0/(1.0+g.theta))
}

// KeyGenerator renders a deterministic key string for a record index,
// padded/truncated to a size drawn from the size Generator, matching
// the source's keygen->generate(index) contract (spec.md §4.2 step 2).
type KeyGenerator struct {
	size    Generator
	records int
}

func NewKeyGenerator(size Generator, records int) *KeyGenerator {
	return &KeyGenerator{size: size, records: records}
}

func (k *KeyGenerator) Generate(index int) string {
	base := fmt.Sprintf("key_%d", index)
	want := int(k.size.Generate())
	if want <= 0 {
		return base
	}
	if want > 255 {
		want = 255
	}
	if len(base) >= want {
		return base[:want]
	}
	var b strings.Builder
	b.WriteString(base)
	for b.Len() < want {
		b.WriteByte('0')
	}
	return b.String()
}
