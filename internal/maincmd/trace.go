package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"bvm/lang/compiler"
	"bvm/lang/machine"
)

// Trace behaves like Run but additionally prints the token vector after
// every sweep to stderr, then the print buffer to stdout.
func (c *Cmd) Trace(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := compileFile(args[0])
	if err != nil {
		return fmt.Errorf("trace %s: %w", args[0], err)
	}
	toks, err := compiler.Compile(string(src))
	if err != nil {
		return fmt.Errorf("trace %s: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.PrintBufferEnabled = true
	cfg.PrintIterations = true
	m := machine.New(toks, cfg)
	m.Tracer = stdio.Stderr
	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("trace %s: %w", args[0], err)
	}
	_, err = stdio.Stdout.Write(m.PrintBuffer.Bytes())
	return err
}
