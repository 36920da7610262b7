package ffmpeg

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// lockedBuffer lets stdout and stderr share one output buffer when they
// are copied by different goroutines.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type Command struct {
	cmd    *exec.Cmd
	name   string
	output lockedBuffer
	stderr []io.Writer
}

func NewCommandContext(ctx context.Context, cmd_name string, args ...string) *Command {
	cmd := exec.CommandContext(ctx, cmd_name, args...)

	c := Command{cmd: cmd, name: cmd_name + " " + strings.Join(args, " ")}
	return &c
}

func CreateAndRunCommandContext(ctx context.Context, cmd_name string, args ...string) (string, error) {
	cmd := NewCommandContext(ctx, cmd_name, args...)
	return cmd.CombinedOutput()
}

func (c *Command) String() string {
	return c.name
}

// TeeStderr copies everything the process writes on stderr to w, on top
// of the combined output buffer.
func (c *Command) TeeStderr(w io.Writer) {
	c.stderr = append(c.stderr, w)
}

func (c *Command) Start() error {
	c.cmd.Stdout = &c.output
	if len(c.stderr) > 0 {
		c.cmd.Stderr = io.MultiWriter(append([]io.Writer{&c.output}, c.stderr...)...)
	} else {
		c.cmd.Stderr = &c.output
	}

	return c.cmd.Start()
}

func (c *Command) Wait() error {
	err := c.cmd.Wait()
	return err
}

func (c *Command) CombinedOutput() (string, error) {
	if err := c.Start(); err != nil {
		return "", err
	}

	err := c.Wait()
	return c.GetOutput(), err
}

func (c *Command) GetOutput() string {
	return c.output.String()
}
