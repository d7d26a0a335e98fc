// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package objdump

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// amd64-shaped dump: variable instruction lengths, a duplicated direct
// call, interleaved junk the parser must skip.
const amd64Dump = `objdump: note: symbolizing
TEXT code.hybscloud.com/once.(*Flag).Do(SB) /root/once/flag.go
  flag.go:31	0x46f200	493b6610	CMPQ SP, 0x10(R14)
  flag.go:31	0x46f204	7614		JBE 0x46f21a
  flag.go:32	0x46f206	488b08		MOVQ 0(AX), CX
  flag.go:?	?		?
  flag.go:35	0x46f209	e812000000	CALL code.hybscloud.com/once.(*Flag).doSlow(SB)
  flag.go:35	0x46f20e	90		NOPL
  flag.go:35	0x46f20f	e80c000000	CALL code.hybscloud.com/once.(*Flag).doSlow(SB)
  flag.go:36	0x46f214	c3		RET

TEXT code.hybscloud.com/once.(*Flag).doSlow(SB) /root/once/flag.go
  flag.go:44	0x46f220	55		PUSHQ BP
  flag.go:44	0x46f221	4889e5		MOVQ SP, BP
  flag.go:45	0x46f224	e897d1f9ff	CALL runtime.deferprocStack(SB)
  flag.go:46	0x46f229	90		NOPL
  flag.go:48	0x46f22a	e8b1c4f9ff	CALL runtime.deferreturn(SB)
  flag.go:48	0x46f22f	5d		POPQ BP
  flag.go:48	0x46f230	c3		RET
`

// arm64-shaped dump: fixed-width instructions, an indirect call that must
// not be attributed, a generic shape instantiation in the name.
const arm64Dump = `TEXT code.hybscloud.com/once.(*Cell[go.shape.int]).Get(SB) /root/once/cell.go
  cell.go:58	0x8a2c0		f9400001	MOVD (R0), R1
  cell.go:59	0x8a2c4		d63f0020	CALL (R1)
  cell.go:60	0x8a2c8		d65f03c0	RET
`

func TestParseVariableLengthInstructions(t *testing.T) {
	syms, err := Parse(strings.NewReader(amd64Dump))
	require.NoError(t, err)
	require.Len(t, syms, 2)

	do := syms[0]
	assert.Equal(t, "code.hybscloud.com/once.(*Flag).Do", do.Name)
	assert.Equal(t, "/root/once/flag.go", do.File)
	assert.Equal(t, uint64(0x46f200), do.Start)
	assert.Equal(t, 21, do.Bytes)
	assert.Equal(t, 7, do.Instructions)
	assert.Equal(t, []string{"code.hybscloud.com/once.(*Flag).doSlow"}, do.CallTargets,
		"repeated call target must appear once")

	slow := syms[1]
	assert.Equal(t, 17, slow.Bytes)
	assert.Equal(t, 7, slow.Instructions)
	assert.Equal(t, []string{"runtime.deferprocStack", "runtime.deferreturn"}, slow.CallTargets)
}

func TestParseFixedWidthInstructions(t *testing.T) {
	syms, err := Parse(strings.NewReader(arm64Dump))
	require.NoError(t, err)
	require.Len(t, syms, 1)

	get := syms[0]
	assert.Equal(t, "code.hybscloud.com/once.(*Cell[go.shape.int]).Get", get.Name)
	assert.Equal(t, 12, get.Bytes)
	assert.Equal(t, 3, get.Instructions)
	assert.Empty(t, get.CallTargets, "indirect calls have no static target")
}

func TestParseEmpty(t *testing.T) {
	syms, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, syms)
}

func TestLookupAndTotals(t *testing.T) {
	syms, err := Parse(strings.NewReader(amd64Dump + arm64Dump))
	require.NoError(t, err)
	require.Len(t, syms, 3)

	_, ok := Lookup(syms, "code.hybscloud.com/once.(*Flag).doSlow")
	assert.True(t, ok)
	_, ok = Lookup(syms, "no.such/symbol")
	assert.False(t, ok)

	bytes, instructions := Totals(syms)
	assert.Equal(t, 21+17+12, bytes)
	assert.Equal(t, 7+7+3, instructions)
}

func TestEncodedLen(t *testing.T) {
	assert.Equal(t, 4, encodedLen("493b6610"))
	assert.Equal(t, 1, encodedLen("c3"))
	assert.Zero(t, encodedLen("c3f"), "odd digit count is not a dump")
	assert.Zero(t, encodedLen("RET"))
	assert.Zero(t, encodedLen(""))
}

// ============================================================
//  Live Disassembly
// ============================================================

func TestInspectSelf(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("skip: go toolchain not on PATH")
	}

	syms, err := Self(context.Background(), `^runtime\.main$`)
	require.NoError(t, err)

	sym, ok := Lookup(syms, "runtime.main")
	require.True(t, ok, "test binary must contain runtime.main")
	assert.Positive(t, sym.Bytes)
	assert.Positive(t, sym.Instructions)
	assert.Greater(t, sym.Instructions*15, sym.Bytes,
		"no instruction encoding exceeds 15 bytes")
}

func TestInspectMissingBinary(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("skip: go toolchain not on PATH")
	}

	_, err := Inspect(context.Background(), "/no/such/binary", ".")
	assert.Error(t, err)
}

func TestInspectNoMatch(t *testing.T) {
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("skip: go toolchain not on PATH")
	}

	_, err := Self(context.Background(), `^definitely\.not\.a\.symbol$`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSymbols)
}
