// Package machine implements the evaluator: the tree parser, the scope
// tracker, instruction semantics, the pending-ops scheduler, and the
// sweep-driven fixed-point loop that ties them together.
package machine

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/exp/slices"

	"bvm/lang/token"
)

// Config holds the evaluator's run-time knobs, loadable from the process
// environment via github.com/caarlos0/env.
type Config struct {
	PrintIterations    bool `env:"BVM_PRINT_ITERATIONS" envDefault:"false"`
	PrintBufferEnabled bool `env:"BVM_PRINT_BUFFER_ENABLED" envDefault:"false"`
	MaxIterations      int  `env:"BVM_MAX_ITERATIONS" envDefault:"10000000"`
}

// DefaultConfig returns the zero-value-safe defaults used when no
// environment overrides are present.
func DefaultConfig() Config {
	return Config{MaxIterations: 10_000_000}
}

// Interpreter owns the token vector and all state of one run: it is not
// safe for concurrent use, matching the single-threaded cooperative model
// of spec §5.
type Interpreter struct {
	Config      Config
	Tracer      io.Writer
	tokens      []token.Token
	PrintBuffer bytes.Buffer
	Iterations  int
}

// New builds an interpreter over tokens with the given configuration.
func New(tokens []token.Token, cfg Config) *Interpreter {
	return &Interpreter{Config: cfg, tokens: append([]token.Token(nil), tokens...)}
}

// Tokens returns the current token vector (after Run, the fixed point or
// the iteration-limit snapshot).
func (m *Interpreter) Tokens() []token.Token { return m.tokens }

// Run executes sweeps until the token vector reaches a fixed point, the
// iteration cap is hit, or ctx is cancelled. Per spec §7, hitting the
// iteration limit is not itself an error: the caller decides whether a
// non-terminating program is a failure.
func (m *Interpreter) Run(ctx context.Context) error {
	for m.Iterations < m.Config.MaxIterations {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		prev := slices.Clone(m.tokens)
		for i := range prev {
			prev[i] = prev[i].Clone()
		}
		if err := Parse(prev); err != nil {
			return wrapFatal(err, m.Iterations)
		}

		next, localPrint, err := m.sweep(prev)
		if err != nil {
			return wrapFatal(err, m.Iterations)
		}
		m.Iterations++

		if m.Config.PrintBufferEnabled {
			m.PrintBuffer.Write(localPrint)
		}
		if m.Tracer != nil && m.Config.PrintIterations {
			fmt.Fprintf(m.Tracer, "sweep %d: %s\n", m.Iterations, renderTokens(next))
		}

		if token.Equal(next, prev) {
			m.tokens = next
			return nil
		}
		m.tokens = next
	}
	return nil
}

// sweep runs one full linear scan over the snapshot and commits the
// resulting pending operations, per spec §4.4.
func (m *Interpreter) sweep(prev []token.Token) ([]token.Token, []byte, error) {
	sched := NewScheduler()
	printBuf := &bytes.Buffer{}
	ev := &evalState{prev: prev, sched: sched, print: printBuf}
	scopes := &scopeStack{}

	n := len(prev)
	pc := 0
	for pc < n {
		if top, ok := scopes.top(); ok && top.executed && (prev[top.headerIndex].Is("seq") || prev[top.headerIndex].Is("useq")) {
			pc = prev[top.headerIndex].LastIndex
		}

		tok := prev[pc]
		op, isInstr := tok.Opcode()
		if !isInstr {
			if tok.IsInstr() {
				return nil, nil, newParseError("opcode index %d out of range at index %d", token.DataAs[int32](tok), pc)
			}
			pc++
			continue
		}

		switch op.Name {
		case "end":
			if top, ok := scopes.top(); ok {
				headerOp, _ := prev[top.headerIndex].Opcode()
				if !top.executed && (headerOp.Name == "ulist" || headerOp.Name == "useq") && ulistShouldDissolve(prev, top.headerIndex) {
					sched.AddDelete(top.headerIndex, top.headerIndex+1, priWeakDelete)
					sched.AddDelete(pc, pc+1, priWeakDelete)
				}
				scopes.pop()
			}
			pc++
			continue
		case "list", "seq", "ulist", "useq":
			scopes.push(pc)
			pc++
			continue
		case "q":
			pc = tok.LastIndex + 1
			continue
		}

		h, ok := handlerTable[op.Name]
		if !ok {
			return nil, nil, newParseError("unknown opcode %q at index %d", op.Name, pc)
		}
		fired, err := h(ev, pc)
		if err != nil {
			return nil, nil, err
		}
		if fired && parentIsContainer(prev, pc) {
			if top, ok := scopes.top(); ok {
				top.executed = true
			}
		}
		if fired {
			pc = tok.LastIndex + 1
		} else {
			// Not ready: descend so operand instructions can reduce first.
			pc++
		}
	}

	out, err := sched.Commit(prev)
	if err != nil {
		return nil, nil, err
	}
	return out, printBuf.Bytes(), nil
}

func renderTokens(tokens []token.Token) string {
	var b bytes.Buffer
	for i, t := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.String())
	}
	return b.String()
}
