// Package clipboard copies chat content to the system clipboard through
// whichever platform tool is available.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type candidate struct {
	name string
	args []string
}

var candidatesByOS = map[string][]candidate{
	"darwin": {
		{name: "pbcopy"},
	},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
}

type Command struct {
	Path string
	Args []string
}

// SelectCommand picks the first available clipboard tool for the platform.
func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	for _, cand := range candidatesByOS[goos] {
		if path, err := lookPath(cand.name); err == nil {
			return Command{Path: path, Args: cand.args}, nil
		}
	}
	return Command{}, ErrToolNotFound
}

// CopyText pipes text into the platform clipboard tool.
func CopyText(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}
	if _, err := stdin.Write([]byte(text)); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
