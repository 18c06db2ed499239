// Package shell runs external commands (az, helm, kubectl, ssh) with
// captured output and uniform failure reporting.
//
// Commands are always invoked with a discrete argument vector. Pipelines are
// the single exception and are isolated behind RunPipeline.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/nnstorm/azup/internal/logging"
)

// Result holds the captured output of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandError reports a command that exited non-zero. The captured standard
// error is embedded for diagnostics.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Runner abstracts command execution so wrappers around helm and kubectl can
// be tested with fakes.
type Runner interface {
	Run(ctx context.Context, argv []string, opts ...Option) (Result, error)
	RunPipeline(ctx context.Context, script string, opts ...Option) (Result, error)
}

// options holds per-invocation settings.
type options struct {
	stream      bool
	streamLevel zerolog.Level
	dir         string
	env         []string
	stdin       io.Reader
}

// Option customises a single invocation.
type Option func(*options)

// Stream forwards stdout line by line to the logger at debug level while the
// command runs. Use for long-running provisioning commands.
func Stream() Option {
	return func(o *options) { o.stream = true }
}

// StreamInfo is like Stream but logs at info level.
func StreamInfo() Option {
	return func(o *options) {
		o.stream = true
		o.streamLevel = zerolog.InfoLevel
	}
}

// Dir sets the working directory of the command.
func Dir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// Env appends environment variables in KEY=VALUE form.
func Env(env ...string) Option {
	return func(o *options) { o.env = append(o.env, env...) }
}

// Stdin supplies the command's standard input.
func Stdin(r io.Reader) Option {
	return func(o *options) { o.stdin = r }
}

// Executor runs commands on the local host.
type Executor struct {
	log zerolog.Logger
}

// New returns an Executor logging to the shared shell component logger.
func New() *Executor {
	return &Executor{log: logging.Component("shell")}
}

// NewWithLogger returns an Executor using the given logger.
func NewWithLogger(log zerolog.Logger) *Executor {
	return &Executor{log: log}
}

// Run executes argv and returns its captured output. A non-zero exit code is
// reported as a *CommandError carrying the captured stderr. There is no
// implicit timeout; bound the context to bound the command.
func (e *Executor) Run(ctx context.Context, argv []string, opts ...Option) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}
	// #nosec G204 -- argv is assembled from discrete arguments by callers
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return e.run(cmd, strings.Join(argv, " "), opts...)
}

// RunPipeline executes a shell pipeline via "sh -c". Only use when piping
// between processes is unavoidable; all other callers go through Run.
func (e *Executor) RunPipeline(ctx context.Context, script string, opts ...Option) (Result, error) {
	if strings.TrimSpace(script) == "" {
		return Result{}, fmt.Errorf("empty pipeline")
	}
	// #nosec G204 -- pipelines are fixed templates, parameters are not quoted in
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	return e.run(cmd, script, opts...)
}

// run executes a prepared command. Cancellation is carried by the context
// already bound into cmd.
func (e *Executor) run(cmd *exec.Cmd, display string, opts ...Option) (Result, error) {
	o := &options{streamLevel: zerolog.DebugLevel}
	for _, opt := range opts {
		opt(o)
	}

	if o.dir != "" {
		cmd.Dir = o.dir
	}
	if len(o.env) > 0 {
		cmd.Env = append(cmd.Environ(), o.env...)
	}
	if o.stdin != nil {
		cmd.Stdin = o.stdin
	}

	e.log.Debug().Str("cmd", display).Msg("running command")

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	var stdout string
	var runErr error

	if o.stream {
		stdout, runErr = e.runStreaming(cmd, o.streamLevel)
	} else {
		var stdoutBuf bytes.Buffer
		cmd.Stdout = &stdoutBuf
		runErr = cmd.Run()
		stdout = e.decode(stdoutBuf.Bytes(), "stdout")
	}

	result := Result{
		Stdout: stdout,
		Stderr: e.decode(stderrBuf.Bytes(), "stderr"),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			e.log.Debug().Str("cmd", display).Int("exit", result.ExitCode).Msg("command failed")
			return result, &CommandError{
				Command:  display,
				ExitCode: result.ExitCode,
				Stderr:   result.Stderr,
			}
		}
		return result, fmt.Errorf("failed to run %q: %w", display, runErr)
	}

	return result, nil
}

// runStreaming reads stdout line by line, forwarding each decodable line to
// the logger, and returns the accumulated output.
func (e *Executor) runStreaming(cmd *exec.Cmd, level zerolog.Level) (string, error) {
	pipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", err
	}

	var lines []string
	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		if !utf8.Valid(raw) {
			e.log.Warn().Msg("dropping undecodable stdout line")
			continue
		}
		line := strings.TrimRight(string(raw), "\r")
		lines = append(lines, line)
		e.log.WithLevel(level).Msg(line)
	}
	// A scanner error means we lost part of the stream, not that the command
	// failed; the exit code still decides success.
	if err := scanner.Err(); err != nil {
		e.log.Warn().Err(err).Msg("error reading command stdout")
	}

	return strings.Join(lines, "\n"), cmd.Wait()
}

// decode converts captured bytes to a string. Undecodable content is dropped
// with a warning rather than failing the invocation.
func (e *Executor) decode(raw []byte, stream string) string {
	if len(raw) == 0 {
		return ""
	}
	if !utf8.Valid(raw) {
		e.log.Warn().Str("stream", stream).Msg("could not decode output as UTF-8")
		return ""
	}
	return string(raw)
}
