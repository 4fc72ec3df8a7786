// SPDX-License-Identifier: Apache-2.0

// Package script parses and replays allocator operation traces.
//
// A trace holds one operation per line; blank lines and text after '#' are
// ignored. Sizes and offsets accept Go integer literals (42, 0x40, 1_024).
//
//	region NAME SIZE        acquire SIZE bytes of caller memory named NAME
//	add NAME OFF SIZE       register NAME[OFF:OFF+SIZE] with AddBlock
//	addfast NAME OFF SIZE   same through AddBlockFast
//	malloc LABEL SIZE       loan SIZE bytes and remember the pointer as LABEL
//	free LABEL              release LABEL with Free
//	freefast LABEL          release LABEL with FreeFast
//	defrag                  run Defrag
//	dump                    report the free list
//	expect-error KIND       the next operation must fail with KIND
package script

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wundergraph/go-freelist"
)

// Kind identifies an operation.
type Kind uint8

const (
	OpRegion Kind = iota + 1
	OpAdd
	OpAddFast
	OpMalloc
	OpFree
	OpFreeFast
	OpDefrag
	OpDump
	OpExpectError
)

var ops = map[string]struct {
	kind Kind
	args int
}{
	"region":       {OpRegion, 2},
	"add":          {OpAdd, 3},
	"addfast":      {OpAddFast, 3},
	"malloc":       {OpMalloc, 2},
	"free":         {OpFree, 1},
	"freefast":     {OpFreeFast, 1},
	"defrag":       {OpDefrag, 0},
	"dump":         {OpDump, 0},
	"expect-error": {OpExpectError, 1},
}

func (k Kind) String() string {
	for name, op := range ops {
		if op.kind == k {
			return name
		}
	}
	return "unknown"
}

// Op is one parsed trace line.
type Op struct {
	Kind   Kind
	Line   int
	Name   string // region name or loan label
	Offset int
	Size   int
	Err    freelist.ErrorKind // for OpExpectError
}

// Parse reads a trace from r.
func Parse(r io.Reader) ([]Op, error) {
	var out []Op
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		op, err := parseOp(line, fields)
		if err != nil {
			return nil, err
		}
		out = append(out, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("script: read: %w", err)
	}
	return out, nil
}

func parseOp(line int, fields []string) (Op, error) {
	def, ok := ops[fields[0]]
	if !ok {
		return Op{}, fmt.Errorf("script: line %d: unknown operation %q", line, fields[0])
	}
	args := fields[1:]
	if len(args) != def.args {
		return Op{}, fmt.Errorf("script: line %d: %s takes %d argument(s), got %d", line, fields[0], def.args, len(args))
	}

	op := Op{Kind: def.kind, Line: line}
	var err error
	switch def.kind {
	case OpRegion, OpMalloc:
		op.Name = args[0]
		op.Size, err = parseInt(line, args[1])
	case OpAdd, OpAddFast:
		op.Name = args[0]
		if op.Offset, err = parseInt(line, args[1]); err == nil {
			op.Size, err = parseInt(line, args[2])
		}
	case OpFree, OpFreeFast:
		op.Name = args[0]
	case OpExpectError:
		kind, ok := freelist.ParseErrorKind(args[0])
		if !ok || kind == freelist.KindNone || kind == freelist.KindOther {
			err = fmt.Errorf("script: line %d: unknown error kind %q", line, args[0])
		}
		op.Err = kind
	}
	return op, err
}

func parseInt(line int, s string) (int, error) {
	v, err := strconv.ParseInt(s, 0, 0)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("script: line %d: invalid size %q", line, s)
	}
	return int(v), nil
}
