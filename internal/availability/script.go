package availability

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// FilePlaceholder in a script command is replaced with the path of a csv
// file holding the urls to check in a `url` column.
const FilePlaceholder = "{file}"

const scriptWaitDelay = time.Second * 5

// ScriptChecker runs an external scraper which prints `<url> <count>` lines
// on stdout. Anything on stderr is treated as log output.
type ScriptChecker struct {
	Command []string `json:"command"`
	Dir     string   `json:"dir"`
}

func writeURLFile(urls []string) (string, error) {
	f, err := os.CreateTemp("", "availability-*.csv")
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	err = w.Write([]string{"url"})
	if err != nil {
		return "", err
	}
	for _, u := range urls {
		err = w.Write([]string{u})
		if err != nil {
			return "", err
		}
	}
	w.Flush()
	return f.Name(), w.Error()
}

func (c ScriptChecker) Check(ctx context.Context, urls []string, report func(Result)) error {
	if len(c.Command) == 0 {
		return fmt.Errorf("no availability script configured")
	}

	file, err := writeURLFile(urls)
	if err != nil {
		return fmt.Errorf("write url list: %w", err)
	}
	defer os.Remove(file)

	args := make([]string, len(c.Command))
	for i, a := range c.Command {
		args[i] = strings.ReplaceAll(a, FilePlaceholder, file)
	}

	stdout, stdoutWriter := io.Pipe()
	stderr, stderrWriter := io.Pipe()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdoutWriter
	cmd.Stderr = stderrWriter
	// bounds Wait when a killed script leaves children holding its output
	cmd.WaitDelay = scriptWaitDelay
	killProcessGroup(cmd)

	err = cmd.Start()
	if err != nil {
		return fmt.Errorf("start %s: %w", args[0], err)
	}
	slog.DebugContext(ctx, "started availability script", "command", args, "urls", len(urls))

	wg := sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer io.Copy(io.Discard, stdout)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			result, err := ParseLine(line)
			if err != nil {
				slog.WarnContext(ctx, "ignoring availability script output", "err", err)
				continue
			}
			report(result)
		}
	}()
	go func() {
		defer wg.Done()
		defer io.Copy(io.Discard, stderr)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.DebugContext(ctx, "availability script", "line", scanner.Text())
		}
	}()

	err = cmd.Wait()
	stdoutWriter.Close()
	stderrWriter.Close()
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		slog.WarnContext(ctx, "availability script left its output open after exiting")
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("availability script exited with %d", exitErr.ExitCode())
	}
	return err
}
