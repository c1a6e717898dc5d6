package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	log "github.com/echocat/slf4g"
)

// exitGrace is how long Close waits for the process to exit on its own after
// its stdin is closed.
const exitGrace = 2 * time.Second

// Process is an engine run as a subprocess speaking JSON lines. Its first
// stdout line is the parameter table announcement; each write is sent as one
// line on its stdin. Closing stdin asks the process to exit.
type Process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	params  Table
	out     *outbox
	flushed chan struct{}
	exited  chan struct{}
}

// StartProcess starts command and waits for its parameter table.
func StartProcess(ctx context.Context, command []string, queueSize int) (*Process, error) {
	if len(command) == 0 {
		return nil, errors.New("engine command is empty")
	}

	cmd := exec.Command(command[0], command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine process: %w", err)
	}

	reader := bufio.NewReader(stdout)
	type result struct {
		params Table
		err    error
	}
	first := make(chan result, 1)
	go func() {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			first <- result{err: fmt.Errorf("read parameter table: %w", err)}
			return
		}
		params, err := decodeParameters(line)
		first <- result{params: params, err: err}
	}()

	var res result
	select {
	case res = <-first:
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	if res.err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, res.err
	}

	p := &Process{
		cmd:     cmd,
		stdin:   stdin,
		params:  res.params,
		out:     newOutbox(queueSize),
		flushed: make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go p.writeLoop()
	go p.wait(reader)

	log.With("command", command[0]).
		With("pid", cmd.Process.Pid).
		With("parameters", len(res.params)).
		Info("Engine process started.")

	return p, nil
}

// Parameters returns the table announced on start.
func (p *Process) Parameters() Table {
	return p.params.Clone()
}

// SetParameter queues a write. It never blocks.
func (p *Process) SetParameter(id ParamID, value float64) error {
	msg, err := encodeSet(id, value)
	if err != nil {
		return err
	}
	return p.out.enqueue(append(msg, '\n'))
}

func (p *Process) Done() <-chan struct{} {
	return p.out.done
}

// Close writes what is still queued, closes the process's stdin and waits
// briefly for it to exit before killing it.
func (p *Process) Close() error {
	p.out.close()
	select {
	case <-p.flushed:
	case <-time.After(exitGrace):
	}
	_ = p.stdin.Close()

	select {
	case <-p.exited:
		return nil
	case <-time.After(exitGrace):
		log.With("pid", p.cmd.Process.Pid).
			Warn("Engine process did not exit, killing it.")
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("kill engine process: %w", err)
		}
		<-p.exited
		return nil
	}
}

func (p *Process) writeLoop() {
	defer close(p.flushed)
	for {
		select {
		case msg := <-p.out.queue:
			if _, err := p.stdin.Write(msg); err != nil {
				log.WithError(err).
					Warn("Cannot write to engine process.")
				p.out.close()
				return
			}
		case <-p.out.done:
			for {
				select {
				case msg := <-p.out.queue:
					if _, err := p.stdin.Write(msg); err != nil {
						return
					}
				default:
					return
				}
			}
		}
	}
}

// wait drains stdout until the process exits, then reaps it.
func (p *Process) wait(stdout *bufio.Reader) {
	defer close(p.exited)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		log.With("line", scanner.Text()).
			Debug("Engine process output.")
	}

	err := p.cmd.Wait()
	p.out.close()
	if err != nil {
		log.WithError(err).
			With("pid", p.cmd.Process.Pid).
			Warn("Engine process exited.")
		return
	}
	log.With("pid", p.cmd.Process.Pid).
		Info("Engine process exited.")
}
