package reconcile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// PromptConfirmer asks on an interactive terminal. Prompts are serialized so
// concurrent callers never interleave questions.
type PromptConfirmer struct {
	mu     sync.Mutex
	reader *bufio.Reader
	out    io.Writer
}

// NewPromptConfirmer creates a confirmer reading answers from in and
// writing questions to out.
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{reader: bufio.NewReader(in), out: out}
}

// Confirm prints prompt and blocks until a line is read. "y" and "yes"
// (any case) approve, anything else declines.
func (c *PromptConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Fprintf(c.out, "%s (y/N): ", prompt)
	response, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && response != "") {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// AutoConfirmer answers every question with Answer without asking.
// The zero value declines; silent mode uses AutoConfirmer{Answer: true}.
type AutoConfirmer struct {
	Answer bool
}

// Confirm returns the fixed answer.
func (c AutoConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	return c.Answer, nil
}

// ScriptedConfirmer replays answers in order and records the prompts it
// was asked. Once the answers are exhausted it returns Default.
type ScriptedConfirmer struct {
	mu      sync.Mutex
	answers []bool
	prompts []string

	// Default is returned once the scripted answers are used up.
	Default bool
}

// NewScriptedConfirmer creates a confirmer replaying answers.
func NewScriptedConfirmer(answers ...bool) *ScriptedConfirmer {
	return &ScriptedConfirmer{answers: answers}
}

// Confirm returns the next scripted answer.
func (c *ScriptedConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	if len(c.answers) == 0 {
		return c.Default, nil
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return answer, nil
}

// Prompts returns the questions asked so far.
func (c *ScriptedConfirmer) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}
