package maincmd

import (
	"context"
	"fmt"

	"github.com/mna/mainer"

	"bvm/lang/compiler"
)

// Tokenize compiles the program at args[0] and prints its initial token
// vector, one token per line, as "<index>: <display>".
func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := compileFile(args[0])
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", args[0], err)
	}
	toks, err := compiler.Compile(string(src))
	if err != nil {
		return fmt.Errorf("tokenize %s: %w", args[0], err)
	}
	for i, t := range toks {
		if t.OrigStr != "" {
			fmt.Fprintf(stdio.Stdout, "%d: %s\n", i, t.OrigStr)
		} else {
			fmt.Fprintf(stdio.Stdout, "%d: %s\n", i, t.String())
		}
	}
	return nil
}
