package presentation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const wrongResponse = "Wrong response character!"

// ErrCancelled is returned when the user dismisses a question without an
// answer.
var ErrCancelled = errors.New("cancelled by user")

type answer struct {
	text string
	err  error
}

// Prompter asks questions on a terminal. Reads happen on a background
// goroutine so a blocked read never outlives a cancelled context.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer

	question *color.Color
	warning  *color.Color

	start   sync.Once
	answers chan answer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:       bufio.NewReader(in),
		out:      out,
		question: color.New(color.FgCyan),
		warning:  color.New(color.FgRed),
		answers:  make(chan answer),
	}
}

// Ask prints question and returns the next line with surrounding
// whitespace removed.
func (p *Prompter) Ask(ctx context.Context, question string) (string, error) {
	if _, err := p.question.Fprint(p.out, question+" "); err != nil {
		return "", err
	}

	p.start.Do(func() { go p.readLines() })

	select {
	case a, ok := <-p.answers:
		if !ok {
			return "", io.ErrUnexpectedEOF
		}
		return a.text, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Confirm repeats question until the answer is Y or N.
func (p *Prompter) Confirm(ctx context.Context, question string) (bool, error) {
	for {
		answer, err := p.Ask(ctx, question)
		if err != nil {
			return false, err
		}

		switch strings.ToUpper(answer) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}

		if _, err := p.warning.Fprintln(p.out, wrongResponse); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}
	}
}

func (p *Prompter) readLines() {
	defer close(p.answers)

	for {
		line, err := p.in.ReadString('\n')
		if line != "" {
			p.answers <- answer{text: strings.TrimSpace(line)}
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			p.answers <- answer{err: err}
			return
		}
	}
}
