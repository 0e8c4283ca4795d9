package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"

	"bvm/lang/compiler"
	"bvm/lang/machine"
)

// loadConfig starts from machine.DefaultConfig and overlays any BVM_*
// environment variables onto it.
func loadConfig() (machine.Config, error) {
	cfg := machine.DefaultConfig()
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func compileFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Run compiles and executes the program at args[0] to a fixed point (or the
// configured iteration cap), writing the accumulated print buffer to
// stdout.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	src, err := compileFile(args[0])
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	toks, err := compiler.Compile(string(src))
	if err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.PrintBufferEnabled = true
	m := machine.New(toks, cfg)
	if err := m.Run(ctx); err != nil {
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	_, err = stdio.Stdout.Write(m.PrintBuffer.Bytes())
	return err
}
