// Package shell manages the shell subprocess that executes user commands
// for the relay. Commands are written to the shell's stdin and its combined
// stdout/stderr is read back synchronously, with a per-command sentinel line
// marking the command boundary and exit code.
//
// Two policies keep the session alive across misbehaving commands:
//
//   - Each command group gets its stdin from /dev/null. The relay owns the
//     terminal, so a program waiting for keyboard input could never be fed
//     anyway; without the redirect it would swallow the sentinel line and
//     hang the relay.
//   - The shell runs non-interactively and exits on a hard syntax error.
//     When that (or `exit`) happens, the runner reports ErrShellExited for
//     the failing command and transparently spawns a fresh shell for the
//     next one. Shell-local state (variables, cwd) is lost on respawn.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ErrShellUnavailable is returned when the shell process cannot be spawned.
// This is fatal to the relay.
var ErrShellUnavailable = errors.New("shell unavailable")

// ErrShellExited is returned when the shell process exits during a command,
// for example because the user ran `exit` or typed a hard syntax error.
// The next Run call spawns a replacement shell.
var ErrShellExited = errors.New("shell exited")

// doneMarker is printed by the shell after every command. The leading
// RS control byte keeps it from colliding with ordinary command output.
const doneMarker = "\x1eaish-done "

// outputCaptureLimit bounds how much of a command's output is retained
// for the transcript. Output beyond the limit is still echoed to the user.
const outputCaptureLimit = 64 * 1024

// Result holds the captured outcome of a single command.
type Result struct {
	// Output is the command's combined stdout/stderr, capped at
	// outputCaptureLimit bytes.
	Output string

	// ExitCode is the command's exit status as reported by the shell.
	// When the shell itself exits, it is the shell's exit status.
	ExitCode int
}

// Options configures a Runner.
type Options struct {
	// Shell is the shell binary to spawn. Defaults to zsh.
	Shell string

	// Echo receives command output as it arrives, so the user sees
	// output live rather than after the command finishes.
	// Defaults to os.Stdout.
	Echo io.Writer

	// Logger is optional.
	Logger *zap.Logger
}

// process holds the state of one spawned shell.
type process struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   *bufio.Reader
}

// Runner owns the shell subprocess for the lifetime of the relay session,
// respawning it if it exits. It is not safe for concurrent use; the relay
// runs exactly one command at a time.
type Runner struct {
	name   string
	path   string
	echo   io.Writer
	logger *zap.Logger

	proc     *process
	seq      int
	closed   bool
	lastExit int
}

// NewRunner spawns the shell subprocess. The shell runs non-interactively,
// reading commands from its stdin; stdout and stderr are merged so output
// is relayed in arrival order.
func NewRunner(opts Options) (*Runner, error) {
	name := opts.Shell
	if name == "" {
		name = "zsh"
	}
	echo := opts.Echo
	if echo == nil {
		echo = os.Stdout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH: %v", ErrShellUnavailable, name, err)
	}

	r := &Runner{
		name:   name,
		path:   path,
		echo:   echo,
		logger: logger,
	}
	if err := r.start(); err != nil {
		return nil, err
	}
	return r, nil
}

// start spawns a fresh shell process.
func (r *Runner) start() error {
	cmd := exec.Command(r.path)
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShellUnavailable, err)
	}

	outRead, outWrite, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrShellUnavailable, err)
	}
	cmd.Stdout = outWrite
	cmd.Stderr = outWrite

	if err := cmd.Start(); err != nil {
		outRead.Close()
		outWrite.Close()
		return fmt.Errorf("%w: %v", ErrShellUnavailable, err)
	}

	// The child holds its own copy of the write end. Closing ours makes
	// the read side return EOF once the shell exits.
	outWrite.Close()

	r.proc = &process{
		cmd:   cmd,
		stdin: stdin,
		out:   bufio.NewReader(outRead),
	}

	r.logger.Debug("shell spawned", zap.String("shell", r.path), zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Name returns the shell binary name the runner was started with.
func (r *Runner) Name() string {
	return r.name
}

// Run forwards a command to the shell verbatim, echoes its output, and
// returns the captured result. Cancellation mid-command is not supported;
// an interrupt signal terminates the whole process instead.
func (r *Runner) Run(ctx context.Context, command string) (*Result, error) {
	return r.run(ctx, command, r.echo)
}

// Capture runs a command without echoing its output to the user. It is
// used for internal queries such as shell-driven completion.
func (r *Runner) Capture(ctx context.Context, command string) (*Result, error) {
	return r.run(ctx, command, io.Discard)
}

func (r *Runner) run(ctx context.Context, command string, echo io.Writer) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.closed {
		return nil, ErrShellExited
	}
	if r.proc == nil {
		if err := r.start(); err != nil {
			return nil, err
		}
	}

	r.seq++

	// The command runs as a brace group with stdin from /dev/null, so a
	// command that reads stdin cannot consume the sentinel line. The
	// sentinel printf runs right after the group, while $? still holds
	// the command's exit status. \036 is the RS byte of doneMarker.
	sentinel := fmt.Sprintf("printf '\\036aish-done %%d %%d\\n' %d \"$?\"\n", r.seq)
	block := "{\n" + command + "\n} </dev/null\n" + sentinel

	if _, err := io.WriteString(r.proc.stdin, block); err != nil {
		// A broken pipe means the shell died between commands.
		r.logger.Warn("failed to write command to shell", zap.Error(err))
		code := r.reap()
		return &Result{ExitCode: code}, ErrShellExited
	}

	return r.readUntilDone(echo)
}

// readUntilDone relays shell output to echo until the sentinel for the
// current command arrives, capturing up to outputCaptureLimit bytes.
func (r *Runner) readUntilDone(echo io.Writer) (*Result, error) {
	var captured strings.Builder

	capture := func(s string) {
		remaining := outputCaptureLimit - captured.Len()
		if remaining <= 0 {
			return
		}
		if len(s) > remaining {
			s = s[:remaining]
		}
		captured.WriteString(s)
	}

	for {
		line, err := r.proc.out.ReadString('\n')

		if line != "" {
			if idx := strings.Index(line, doneMarker); idx >= 0 {
				// Output that did not end in a newline lands on the
				// same line as the sentinel.
				if idx > 0 {
					head := line[:idx]
					fmt.Fprint(echo, head)
					capture(head)
				}

				var seq, code int
				rest := line[idx+len(doneMarker):]
				if n, _ := fmt.Sscanf(rest, "%d %d", &seq, &code); n == 2 && seq == r.seq {
					return &Result{Output: captured.String(), ExitCode: code}, nil
				}
				// Stale sentinel from an earlier command; keep reading.
				continue
			}

			fmt.Fprint(echo, line)
			capture(line)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				code := r.reap()
				return &Result{Output: captured.String(), ExitCode: code}, ErrShellExited
			}
			return nil, fmt.Errorf("failed to read shell output: %w", err)
		}
	}
}

// reap collects the dead shell's exit code and clears the process so the
// next Run spawns a replacement.
func (r *Runner) reap() int {
	proc := r.proc
	r.proc = nil
	if proc == nil {
		return r.lastExit
	}

	proc.stdin.Close()

	code := 0
	err := proc.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	} else if err != nil {
		r.logger.Warn("error waiting for shell", zap.Error(err))
		code = 1
	}

	r.lastExit = code
	return code
}

// Close shuts the shell down by closing its stdin and reaping the process.
// A closed runner does not respawn.
func (r *Runner) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	proc := r.proc
	r.proc = nil
	if proc == nil {
		return nil
	}

	proc.stdin.Close()
	if err := proc.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	}
	return nil
}
