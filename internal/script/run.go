// SPDX-License-Identifier: Apache-2.0

package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unsafe"

	"github.com/wundergraph/go-freelist"
	"github.com/wundergraph/go-freelist/internal/region"
)

// ErrExpectation is returned when an operation does not fail the way an
// expect-error line demanded.
var ErrExpectation = errors.New("script: expectation failed")

// Runner replays operations against a Manager. It owns the regions it
// acquires; call Close when the Manager is no longer used.
type Runner struct {
	m       *freelist.Manager
	acquire func(size int) (*region.Region, error)
	onDump  func(op Op, blocks []freelist.Block) error
	logger  *slog.Logger

	regions map[string]*region.Region
	loans   map[string]*loan
}

// loan tracks the pointer behind a malloc label. A released label keeps its
// entry so a second free is reported without touching memory that may have
// been loaned again.
type loan struct {
	ptr      unsafe.Pointer
	released bool
}

// RunnerOption represents a configuration option for a Runner.
type RunnerOption func(*Runner)

// WithAcquire sets how region operations obtain memory. The default takes
// heap memory aligned to the manager's alignment.
func WithAcquire(fn func(size int) (*region.Region, error)) RunnerOption {
	return func(r *Runner) {
		r.acquire = fn
	}
}

// WithDump sets the callback invoked for every dump operation.
func WithDump(fn func(op Op, blocks []freelist.Block) error) RunnerOption {
	return func(r *Runner) {
		r.onDump = fn
	}
}

// WithRunnerLogger sets the logger that traces every replayed operation.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a Runner for m.
func NewRunner(m *freelist.Manager, opts ...RunnerOption) *Runner {
	r := &Runner{
		m:       m,
		regions: make(map[string]*region.Region),
		loans:   make(map[string]*loan),
	}
	r.acquire = func(size int) (*region.Region, error) {
		return region.Heap(size, int(m.Alignment()))
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run executes ops in order and stops at the first unexpected outcome.
func (r *Runner) Run(ops []Op) error {
	var expect freelist.ErrorKind
	var expectLine int
	for _, op := range ops {
		if op.Kind == OpExpectError {
			expect, expectLine = op.Err, op.Line
			continue
		}

		err := r.exec(op)
		kind := freelist.KindOf(err)
		r.logger.Debug("script: op", "line", op.Line, "op", op.Kind.String(), "name", op.Name, "result", kind.String())

		switch {
		case expect != freelist.KindNone:
			if kind != expect {
				return fmt.Errorf("%w: line %d: %s expected %s (line %d), got %s", ErrExpectation, op.Line, op.Kind, expect, expectLine, kind)
			}
			expect = freelist.KindNone
		case err != nil:
			return fmt.Errorf("script: line %d: %s: %w", op.Line, op.Kind, err)
		}
	}
	if expect != freelist.KindNone {
		return fmt.Errorf("%w: line %d: expect-error %s has no following operation", ErrExpectation, expectLine, expect)
	}
	return nil
}

func (r *Runner) exec(op Op) error {
	switch op.Kind {
	case OpRegion:
		if _, ok := r.regions[op.Name]; ok {
			return fmt.Errorf("region %q already exists", op.Name)
		}
		reg, err := r.acquire(op.Size)
		if err != nil {
			return err
		}
		r.regions[op.Name] = reg
		return nil

	case OpAdd, OpAddFast:
		reg, ok := r.regions[op.Name]
		if !ok {
			return fmt.Errorf("unknown region %q", op.Name)
		}
		block, err := reg.Slice(op.Offset, op.Size)
		if err != nil {
			return err
		}
		if op.Kind == OpAddFast {
			return r.m.AddBlockFast(block)
		}
		return r.m.AddBlock(block)

	case OpMalloc:
		if l, ok := r.loans[op.Name]; ok && !l.released {
			return fmt.Errorf("label %q is still on loan", op.Name)
		}
		ptr, err := r.m.Malloc(uintptr(op.Size))
		if err != nil {
			return err
		}
		r.loans[op.Name] = &loan{ptr: ptr}
		return nil

	case OpFree, OpFreeFast:
		l, ok := r.loans[op.Name]
		if !ok {
			return fmt.Errorf("unknown label %q", op.Name)
		}
		if l.released {
			return fmt.Errorf("%w: label %q was already released", freelist.ErrUnknownPointer, op.Name)
		}
		var err error
		if op.Kind == OpFreeFast {
			err = r.m.FreeFast(l.ptr)
		} else {
			err = r.m.Free(l.ptr)
		}
		if err != nil {
			return err
		}
		l.released = true
		return nil

	case OpDefrag:
		r.m.Defrag()
		return nil

	case OpDump:
		if r.onDump == nil {
			return nil
		}
		return r.onDump(op, r.m.FreeBlocks())
	}
	return fmt.Errorf("unsupported operation %s", op.Kind)
}

// Region returns a region acquired by the trace.
func (r *Runner) Region(name string) (*region.Region, bool) {
	reg, ok := r.regions[name]
	return reg, ok
}

// Loan returns the pointer loaned under label while it is still on loan.
func (r *Runner) Loan(label string) (unsafe.Pointer, bool) {
	l, ok := r.loans[label]
	if !ok || l.released {
		return nil, false
	}
	return l.ptr, true
}

// Close releases every acquired region. The Manager must not be used
// afterwards.
func (r *Runner) Close() error {
	var errs []error
	for name, reg := range r.regions {
		if err := reg.Close(); err != nil {
			errs = append(errs, fmt.Errorf("region %q: %w", name, err))
		}
	}
	clear(r.regions)
	return errors.Join(errs...)
}
