package presentation

import (
	"context"
	"path/filepath"
)

// TerminalPicker reads paths typed at the prompt.
type TerminalPicker struct {
	prompter *Prompter
}

func NewTerminalPicker(p *Prompter) *TerminalPicker {
	return &TerminalPicker{prompter: p}
}

func (t *TerminalPicker) PickOpenPath(ctx context.Context) (string, error) {
	return t.pick(ctx, "Image to open:")
}

// PickSavePath appends defaultExt when the answer has no extension.
func (t *TerminalPicker) PickSavePath(ctx context.Context, defaultExt string) (string, error) {
	path, err := t.pick(ctx, "Save result as (default extension "+defaultExt+"):")
	if err != nil {
		return "", err
	}
	return withDefaultExt(path, defaultExt), nil
}

func (t *TerminalPicker) pick(ctx context.Context, question string) (string, error) {
	path, err := t.prompter.Ask(ctx, question)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", ErrCancelled
	}
	return path, nil
}

func withDefaultExt(path, defaultExt string) string {
	if filepath.Ext(path) == "" {
		return path + defaultExt
	}
	return path
}
