package command

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/ringside-dev/ringside/internal/log"
)

// ExecRunner runs commands as host processes.
type ExecRunner struct {
	logger log.Logger
}

// NewExecRunner creates a new host process runner.
func NewExecRunner(logger log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.Noop
	}
	return &ExecRunner{
		logger: logger.WithValues(log.Kv{"svc": "command.ExecRunner"}),
	}
}

var _ Runner = &ExecRunner{}

// Start spawns the command. Output is drained on background goroutines, the
// returned Process reports the final state through Wait.
func (r *ExecRunner) Start(ctx context.Context, c Command, sink LineSink) (Process, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(string) {}
	}

	cmd := exec.CommandContext(ctx, c.Bin, c.Args...)
	cmd.Dir = c.Dir

	p := &execProcess{cmd: cmd, done: make(chan struct{})}

	var outFile *os.File
	if c.OutputPath != "" {
		f, err := os.Create(c.OutputPath)
		if err != nil {
			return nil, fmt.Errorf("could not create output file: %w", err)
		}
		outFile = f
		cmd.Stdout = f
	} else {
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("could not pipe stdout: %w", err)
		}
		p.pipes = append(p.pipes, stdout)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		if outFile != nil {
			_ = outFile.Close()
		}
		return nil, fmt.Errorf("could not pipe stderr: %w", err)
	}
	p.pipes = append(p.pipes, stderr)

	if err := cmd.Start(); err != nil {
		if outFile != nil {
			_ = outFile.Close()
		}
		return nil, fmt.Errorf("could not start %q: %w", c.Bin, err)
	}

	r.logger.Debugf("Started process %d: %s", cmd.Process.Pid, c.String())

	var wg sync.WaitGroup
	for _, pipe := range p.pipes {
		wg.Add(1)
		go func(rd io.Reader) {
			defer wg.Done()
			scanner := bufio.NewScanner(rd)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				sink(scanner.Text())
			}
		}(pipe)
	}

	// Wait must run after the pipe readers are drained.
	go func() {
		wg.Wait()
		p.waitErr = cmd.Wait()
		if outFile != nil {
			_ = outFile.Close()
		}
		close(p.done)
	}()

	return p, nil
}

type execProcess struct {
	cmd     *exec.Cmd
	pipes   []io.ReadCloser
	waitErr error
	done    chan struct{}
}

func (p *execProcess) Wait() error {
	<-p.done
	return p.waitErr
}

func (p *execProcess) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("could not terminate process %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func (p *execProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if err != nil && err != os.ErrProcessDone {
		return fmt.Errorf("could not kill process %d: %w", p.cmd.Process.Pid, err)
	}
	return nil
}

func (p *execProcess) Usage() Usage {
	if p.cmd.Process == nil {
		return Usage{}
	}

	select {
	case <-p.done:
		return Usage{}
	default:
	}

	proc, err := process.NewProcess(int32(p.cmd.Process.Pid))
	if err != nil {
		return Usage{}
	}

	var usage Usage
	if cpu, err := proc.CPUPercent(); err == nil {
		usage.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		usage.RSSBytes = mem.RSS
	}
	return usage
}

func (p *execProcess) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}
