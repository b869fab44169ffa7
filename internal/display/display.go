// Package display runs the external commands that probe and switch the screen.
package display

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// DefaultTimeout bounds every external command.
const DefaultTimeout = 10 * time.Second

// offMarker is what vcgencmd display_power prints for a powered-down display.
const offMarker = "display_power=0"

// CommandError reports a command that failed or wrote to stderr.
type CommandError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	switch {
	case e.Err != nil && e.Stderr != "":
		return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, e.Stderr)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	}
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exec runs commands with os/exec.
type Exec struct {
	Timeout time.Duration
}

// NewExec creates an Exec with DefaultTimeout.
func NewExec() *Exec {
	return &Exec{Timeout: DefaultTimeout}
}

// Status runs the probe command. The screen is off only if stdout starts with
// "display_power=0"; empty output or a failed command counts as on.
func (x *Exec) Status(cmd logic.Command) (bool, error) {
	stdout, err := x.run(cmd)
	return ParseStatus(stdout), err
}

// Run executes an on or off command.
func (x *Exec) Run(cmd logic.Command) error {
	_, err := x.run(cmd)
	return err
}

func (x *Exec) run(cmd logic.Command) (string, error) {
	timeout := x.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	errText := strings.TrimSpace(stderr.String())
	if err != nil || errText != "" {
		return stdout.String(), &CommandError{Command: cmd.Path, Stderr: errText, Err: err}
	}
	return stdout.String(), nil
}

// ParseStatus interprets the output of a status command.
func ParseStatus(stdout string) bool {
	return !strings.HasPrefix(strings.TrimSpace(stdout), offMarker)
}
