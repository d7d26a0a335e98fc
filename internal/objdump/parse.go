// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package objdump

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Parse reads go tool objdump output. The format is one TEXT header per
// symbol followed by one line per instruction:
//
//	TEXT sync.(*Once).Do(SB) /usr/local/go/src/sync/once.go
//	  once.go:65    0x4795c0    493b6610    CMPQ SP, 0x10(R14)
//
// Lines that do not match either shape are skipped, so the parser
// survives the format drifting between toolchain releases.
func Parse(r io.Reader) ([]Symbol, error) {
	var (
		syms []Symbol
		cur  *Symbol
		seen map[string]struct{}
		end  uint64
	)
	flush := func() {
		if cur == nil {
			return
		}
		if cur.Instructions > 0 {
			cur.Bytes = int(end - cur.Start)
		}
		syms = append(syms, *cur)
		cur = nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		switch {
		case len(fields) >= 2 && fields[0] == "TEXT":
			flush()
			cur = &Symbol{Name: strings.TrimSuffix(fields[1], "(SB)")}
			if len(fields) >= 3 {
				cur.File = fields[len(fields)-1]
			}
			seen = make(map[string]struct{})

		case cur != nil && len(fields) >= 3:
			addr, ok := parseAddr(fields[1])
			if !ok {
				continue
			}
			size := encodedLen(fields[2])
			if size == 0 {
				continue
			}
			if cur.Instructions == 0 {
				cur.Start = addr
			}
			cur.Instructions++
			end = addr + uint64(size)

			// Only statically resolved calls carry a symbol operand;
			// indirect calls through a register are not attributable.
			if len(fields) >= 5 && fields[3] == "CALL" && strings.HasSuffix(fields[4], "(SB)") {
				target := strings.TrimSuffix(fields[4], "(SB)")
				if _, dup := seen[target]; !dup {
					seen[target] = struct{}{}
					cur.CallTargets = append(cur.CallTargets, target)
				}
			}
		}
	}
	flush()
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return syms, nil
}

func parseAddr(s string) (uint64, bool) {
	hexDigits, found := strings.CutPrefix(s, "0x")
	if !found {
		return 0, false
	}
	addr, err := strconv.ParseUint(hexDigits, 16, 64)
	if err != nil {
		return 0, false
	}
	return addr, true
}

// encodedLen returns the byte length of an instruction from its hex dump
// column, 0 when the column is not a hex dump.
func encodedLen(s string) int {
	if len(s) == 0 || len(s)%2 != 0 {
		return 0
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return 0
		}
	}
	return len(s) / 2
}
