// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package objdump measures machine code, not time: how many bytes and
// instructions a symbol occupies and whom it calls, extracted from
// go tool objdump output. Code size is the static side of instruction
// cache behavior; a body that grows past the inlining budget turns into
// a call, and a call into a cold line is what the miss counters then
// show. This package provides the numbers to line up against them.
package objdump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"code.hybscloud.com/once/internal/log"
)

// ErrNoSymbols indicates that the symbol expression matched nothing in
// the inspected binary.
var ErrNoSymbols = errors.New("objdump: no symbols matched")

// Symbol is one TEXT symbol of a binary.
type Symbol struct {
	// Name is the full symbol name, generic shape instantiations
	// included, e.g. "sync.(*Once).Do".
	Name string
	// File is the source file objdump attributes the symbol to.
	File string
	// Start is the address of the first instruction.
	Start uint64
	// Bytes is the span from the first instruction to the end of the
	// last one, the symbol's instruction cache footprint.
	Bytes int
	// Instructions is the number of decoded instructions.
	Instructions int
	// CallTargets lists the distinct symbols called, in first-call order.
	CallTargets []string
}

// Inspect disassembles the symbols of binary whose names match the
// regular expression symbolRE.
//
// It shells out to go tool objdump, so the go binary must be on PATH and
// the target must be a Go binary with its symbol table intact.
func Inspect(ctx context.Context, binary, symbolRE string) ([]Symbol, error) {
	logger := log.WithComponent("objdump")
	logger.Debug().Str("binary", binary).Str("symbols", symbolRE).Msg("disassembling")

	cmd := exec.CommandContext(ctx, "go", "tool", "objdump", "-s", symbolRE, binary)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("objdump: %s: %s", binary, msg)
	}

	syms, err := Parse(&out)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrNoSymbols, symbolRE, binary)
	}
	return syms, nil
}

// Self disassembles matching symbols of the running executable. The lab
// binary links the primitives it measures, so their generated code can be
// inspected without building anything else.
func Self(ctx context.Context, symbolRE string) ([]Symbol, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("objdump: resolve executable: %w", err)
	}
	return Inspect(ctx, exe, symbolRE)
}

// Lookup returns the first symbol with the exact name.
func Lookup(syms []Symbol, name string) (Symbol, bool) {
	for _, s := range syms {
		if s.Name == name {
			return s, true
		}
	}
	return Symbol{}, false
}

// Totals sums bytes and instructions over syms.
func Totals(syms []Symbol) (bytes, instructions int) {
	for _, s := range syms {
		bytes += s.Bytes
		instructions += s.Instructions
	}
	return bytes, instructions
}
