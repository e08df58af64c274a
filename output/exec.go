package output

import (
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/lexandro/ff/attr"
)

// Halt policies for subprocess failures.
const (
	HaltNever = "never"
	HaltSoon  = "soon"
	HaltNow   = "now"
)

// ExecOptions configures the subprocess sinks.
type ExecOptions struct {
	// Args is the command template.
	Args []string
	// Workers bounds the number of concurrent subprocesses (-x only).
	Workers int
	// Halt is one of the Halt* policies.
	Halt string
	// OnHalt is invoked once when the halt policy stops the search, used to
	// stop the walker.
	OnHalt func()
	Logger *slog.Logger
}

// Exec runs a command once per matching entry (-x), fanning out over a
// bounded pool of subprocesses.
type Exec struct {
	opts ExecOptions
	tpl  *Template

	jobs    chan []string
	wg      sync.WaitGroup
	failed  atomic.Bool
	stopped atomic.Bool

	procMu  sync.Mutex
	running map[*exec.Cmd]struct{}
}

// NewExec builds the per-entry exec sink and starts its worker pool.
func NewExec(opts ExecOptions, reg *attr.Registry) (*Exec, error) {
	tpl, err := ParseTemplate(opts.Args, reg)
	if err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Exec{
		opts:    opts,
		tpl:     tpl,
		jobs:    make(chan []string),
		running: make(map[*exec.Cmd]struct{}),
	}
	for i := 0; i < opts.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for argv := range e.jobs {
				e.run(argv)
			}
		}()
	}
	return e, nil
}

// Accept implements Sink.
func (e *Exec) Accept(ctx *attr.Context) {
	if e.stopped.Load() {
		return
	}
	e.jobs <- e.tpl.Expand(ctx)
}

// Close implements Sink: it drains the job queue and waits for all
// subprocesses to finish.
func (e *Exec) Close() error {
	close(e.jobs)
	e.wg.Wait()
	return nil
}

// Failed reports whether any subprocess exited nonzero.
func (e *Exec) Failed() bool { return e.failed.Load() }

func (e *Exec) run(argv []string) {
	if e.stopped.Load() || len(argv) == 0 {
		return
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	e.procMu.Lock()
	if err := cmd.Start(); err != nil {
		e.procMu.Unlock()
		e.opts.Logger.Warn("unable to start command", "command", argv[0], "error", err)
		e.fail()
		return
	}
	e.running[cmd] = struct{}{}
	e.procMu.Unlock()

	err := cmd.Wait()

	e.procMu.Lock()
	delete(e.running, cmd)
	e.procMu.Unlock()

	if err != nil {
		e.opts.Logger.Debug("command failed", "command", argv[0], "error", err)
		e.fail()
	}
}

// fail records the failure and applies the halt policy.
func (e *Exec) fail() {
	e.failed.Store(true)

	switch e.opts.Halt {
	case HaltSoon:
		e.halt()
	case HaltNow:
		e.halt()
		e.procMu.Lock()
		for cmd := range e.running {
			if cmd.Process != nil {
				cmd.Process.Kill()
			}
		}
		e.procMu.Unlock()
	}
}

func (e *Exec) halt() {
	if e.stopped.CompareAndSwap(false, true) && e.opts.OnHalt != nil {
		e.opts.OnHalt()
	}
}

// ExecBatch collects the expanded arguments of all matching entries and
// runs the command once on Close (-X).
type ExecBatch struct {
	opts   ExecOptions
	head   []string
	repeat *Template

	mu     sync.Mutex
	args   []string
	count  int
	failed bool
}

// NewExecBatch builds the batch exec sink.
func NewExecBatch(opts ExecOptions, reg *attr.Registry) (*ExecBatch, error) {
	tpl, err := ParseTemplate(opts.Args, reg)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	head, repeat := tpl.SplitBatch()
	return &ExecBatch{opts: opts, head: head, repeat: repeat}, nil
}

// Accept implements Sink.
func (e *ExecBatch) Accept(ctx *attr.Context) {
	expanded := e.repeat.Expand(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.args = append(e.args, expanded...)
	e.count++
}

// Close implements Sink and runs the collected command. Without any match
// the command is not run at all.
func (e *ExecBatch) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.count == 0 || len(e.head) == 0 {
		return nil
	}

	cmd := exec.Command(e.head[0], append(e.head[1:], e.args...)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		e.opts.Logger.Debug("command failed", "command", e.head[0], "error", err)
		e.failed = true
	}
	return nil
}

// Failed reports whether the batch command exited nonzero.
func (e *ExecBatch) Failed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failed
}
