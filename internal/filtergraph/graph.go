package filtergraph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingLink means a chain consumes a label nothing produces
	ErrMissingLink = errors.New("link consumed but never produced")
	// ErrUnconsumedLink means a produced label is never consumed
	ErrUnconsumedLink = errors.New("link produced but never consumed")
	// ErrDuplicateLink means a label is produced or consumed more than once
	ErrDuplicateLink = errors.New("link used more than once")
	// ErrFanOut means a filter's declared input/output count disagrees with its wiring
	ErrFanOut = errors.New("filter arity does not match wiring")
)

// Chain is a comma-joined run of filters between labelled inputs and outputs
type Chain struct {
	Inputs  []string
	Filters []*Filter
	Outputs []string
}

// From starts a chain reading the given labels or stream specifiers
func From(inputs ...string) *Chain {
	return &Chain{Inputs: inputs}
}

// Apply appends a filter to the chain
func (c *Chain) Apply(f *Filter) *Chain {
	c.Filters = append(c.Filters, f)
	return c
}

// To sets the chain's output labels
func (c *Chain) To(outputs ...string) *Chain {
	c.Outputs = outputs
	return c
}

// String renders the chain as [in]f1,f2[out]
func (c *Chain) String() string {
	var b strings.Builder
	for _, in := range c.Inputs {
		b.WriteString("[" + in + "]")
	}
	for i, f := range c.Filters {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(f.String())
	}
	for _, out := range c.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// Graph is an ordered set of chains with named sinks that leave the graph
// through -map
type Graph struct {
	chains []*Chain
	sinks  []string
}

// NewGraph creates an empty graph with the given sink labels
func NewGraph(sinks ...string) *Graph {
	return &Graph{
		chains: make([]*Chain, 0),
		sinks:  sinks,
	}
}

// Add appends chains in order
func (g *Graph) Add(chains ...*Chain) {
	g.chains = append(g.chains, chains...)
}

// Chains returns the chains in order
func (g *Graph) Chains() []*Chain {
	return g.chains
}

// Sinks returns the labels mapped out of the graph
func (g *Graph) Sinks() []string {
	return g.sinks
}

// Producer returns the chain that outputs label, or nil
func (g *Graph) Producer(label string) *Chain {
	for _, c := range g.chains {
		for _, out := range c.Outputs {
			if out == label {
				return c
			}
		}
	}
	return nil
}

// String serializes the graph one chain per line, every chain but the last
// terminated by a semicolon
func (g *Graph) String() string {
	lines := make([]string, len(g.chains))
	for i, c := range g.chains {
		lines[i] = c.String()
	}
	return strings.Join(lines, ";\n")
}

// isStream reports whether a label names an input stream such as 0:v
func isStream(label string) bool {
	return strings.Contains(label, ":")
}

// Validate checks that every produced link is consumed exactly once, every
// consumed link exists, sinks are produced once and never consumed, and
// split/amix/overlay arities match their wiring.
func (g *Graph) Validate() error {
	produced := make(map[string]int)
	consumed := make(map[string]int)

	for i, c := range g.chains {
		if len(c.Filters) == 0 {
			return fmt.Errorf("chain %d has no filters", i)
		}
		if len(c.Outputs) == 0 {
			return fmt.Errorf("%w: chain %d has no output label", ErrUnconsumedLink, i)
		}
		for _, out := range c.Outputs {
			produced[out]++
			if produced[out] > 1 {
				return fmt.Errorf("%w: [%s] produced twice", ErrDuplicateLink, out)
			}
		}
		for _, in := range c.Inputs {
			consumed[in]++
			if consumed[in] > 1 {
				return fmt.Errorf("%w: [%s] consumed twice", ErrDuplicateLink, in)
			}
		}
		if err := checkArity(c); err != nil {
			return fmt.Errorf("chain %d: %w", i, err)
		}
	}

	sinks := make(map[string]bool, len(g.sinks))
	for _, s := range g.sinks {
		sinks[s] = true
		if produced[s] == 0 {
			return fmt.Errorf("%w: sink [%s]", ErrMissingLink, s)
		}
		if consumed[s] > 0 {
			return fmt.Errorf("%w: sink [%s] consumed inside the graph", ErrDuplicateLink, s)
		}
	}

	for label := range consumed {
		if produced[label] == 0 && !isStream(label) {
			return fmt.Errorf("%w: [%s]", ErrMissingLink, label)
		}
	}
	for label := range produced {
		if !sinks[label] && consumed[label] == 0 {
			return fmt.Errorf("%w: [%s]", ErrUnconsumedLink, label)
		}
	}
	return nil
}

func checkArity(c *Chain) error {
	first, last := c.Filters[0], c.Filters[len(c.Filters)-1]

	switch first.Name {
	case "overlay":
		if len(c.Inputs) != 2 {
			return fmt.Errorf("%w: overlay with %d inputs", ErrFanOut, len(c.Inputs))
		}
	case "amix":
		v, _ := first.Get("inputs")
		n, err := strconv.Atoi(v)
		if err != nil || n != len(c.Inputs) {
			return fmt.Errorf("%w: amix inputs=%s with %d links", ErrFanOut, v, len(c.Inputs))
		}
	default:
		if len(c.Inputs) != 1 {
			return fmt.Errorf("%w: %s with %d inputs", ErrFanOut, first.Name, len(c.Inputs))
		}
	}

	switch last.Name {
	case "split", "asplit":
		n := 2
		if len(last.Options) > 0 {
			var err error
			if n, err = strconv.Atoi(last.Options[0].Value); err != nil {
				return fmt.Errorf("%w: %s count %q", ErrFanOut, last.Name, last.Options[0].Value)
			}
		}
		if n != len(c.Outputs) {
			return fmt.Errorf("%w: %s=%d with %d outputs", ErrFanOut, last.Name, n, len(c.Outputs))
		}
	default:
		if len(c.Outputs) != 1 {
			return fmt.Errorf("%w: %s with %d outputs", ErrFanOut, last.Name, len(c.Outputs))
		}
	}
	return nil
}
