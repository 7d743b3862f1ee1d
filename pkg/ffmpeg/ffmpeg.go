package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Command accumulates an ordered (flag, value?) argument list for one
// encoder invocation.
type Command struct {
	args []string
}

func NewCommand() *Command {
	return &Command{}
}

// Flag appends a bare flag such as "-y".
func (c *Command) Flag(name string) *Command {
	c.args = append(c.args, name)
	return c
}

// Option appends a flag with a value, such as ("-ss", "3.0").
func (c *Command) Option(name, value string) *Command {
	c.args = append(c.args, name, value)
	return c
}

func (c *Command) Args() []string {
	return c.args
}

func (c *Command) String() string {
	return strings.Join(c.args, " ")
}

// Encoder abstracts the external media encoder so transformers can be tested
// without spawning processes.
type Encoder interface {
	// Execute runs the encoder with its primary output on stdout, streamed
	// to consume. It returns only once the process has exited cleanly and
	// the consumer has finished.
	Execute(ctx context.Context, args []string, consume func(io.Reader) error) error

	// ExecuteToFiles runs an encoder invocation that writes directly to
	// files (segment-based output). Diagnostic lines are surfaced
	// incrementally through onDiagnostic while the process runs.
	ExecuteToFiles(ctx context.Context, args []string, onDiagnostic func(line string)) error

	// Probe returns the duration of the input in seconds.
	Probe(ctx context.Context, input string) (float64, error)
}

type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewFFmpeg(ffmpegPath, ffprobePath string, logger *zap.Logger) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpeg{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath, logger: logger}
}

func (f *FFmpeg) Execute(ctx context.Context, args []string, consume func(io.Reader) error) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open stdout pipe: %w", err)
	}
	diag := newTailBuffer(maxDiagnosticBytes)
	cmd.Stderr = diag

	if err := cmd.Start(); err != nil {
		return startError(f.ffmpegPath, err)
	}

	f.logger.Debug("encoder started", zap.String("binary", f.ffmpegPath), zap.Strings("args", args))

	consumeErr := consume(stdout)
	if consumeErr != nil {
		// Drain what is left so Wait does not block on a full pipe.
		_, _ = io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %s", Classify(diag.String()))
	}
	if consumeErr != nil {
		return fmt.Errorf("output consumer failed: %w", consumeErr)
	}
	return nil
}

func (f *FFmpeg) ExecuteToFiles(ctx context.Context, args []string, onDiagnostic func(line string)) error {
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return startError(f.ffmpegPath, err)
	}

	f.logger.Debug("encoder started in file-output mode", zap.String("binary", f.ffmpegPath), zap.Strings("args", args))

	diag := newTailBuffer(maxDiagnosticBytes)
	f.scanDiagnostics(stderr, diag, onDiagnostic)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("encoder failed: %s", Classify(diag.String()))
	}
	return nil
}

// scanDiagnostics feeds stderr lines into the diagnostic tail and the
// caller's callback. A scan failure (oversized line, broken pipe) truncates
// the classifier's input, so it is logged rather than dropped.
func (f *FFmpeg) scanDiagnostics(r io.Reader, diag *tailBuffer, onDiagnostic func(line string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		diag.WriteString(line + "\n")
		if onDiagnostic != nil {
			onDiagnostic(line)
		}
	}
	if err := scanner.Err(); err != nil {
		f.logger.Warn("encoder diagnostics truncated", zap.Error(err))
	}
}

func (f *FFmpeg) Probe(ctx context.Context, input string) (float64, error) {
	args := NewCommand().
		Option("-v", "error").
		Option("-show_entries", "format=duration").
		Option("-of", "default=noprint_wrappers=1:nokey=1").
		Flag(input).
		Args()

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	output, err := cmd.Output()
	if err != nil {
		if execErr, ok := err.(*exec.Error); ok {
			return 0, startError(f.ffprobePath, execErr)
		}
		return 0, fmt.Errorf("probe %s: %w", input, err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse probed duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}

// startError distinguishes "the binary is missing" from "the process ran and
// failed", which callers report very differently.
func startError(binary string, err error) error {
	return fmt.Errorf("failed to start %q: %v; ensure the encoder binary is installed and on PATH", binary, err)
}

const maxDiagnosticBytes = 256 * 1024

// tailBuffer keeps the last maxBytes of what is written to it. Encoder
// diagnostic streams can grow without bound on long encodes; the useful part
// is at the end.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.max {
		b.buf = b.buf[len(b.buf)-b.max:]
	}
	return len(p), nil
}

func (b *tailBuffer) WriteString(s string) {
	_, _ = b.Write([]byte(s))
}

func (b *tailBuffer) String() string {
	return string(b.buf)
}
