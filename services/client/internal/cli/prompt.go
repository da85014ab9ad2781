package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompter reads answers from the terminal. It serves as the loan and delete
// confirmer and as the line source of the shell, so all reads share one buffer.
type Prompter struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

// NewPrompter builds a prompter. With assumeYes every confirmation is accepted
// without reading input.
func NewPrompter(in io.Reader, out io.Writer, assumeYes bool) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

// Confirm asks a yes/no question. Anything but y or yes is a no.
func (p *Prompter) Confirm(_ context.Context, prompt string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	answer, err := p.Ask(prompt + " [y/N]")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Ask prints label and returns the trimmed line typed in reply.
func (p *Prompter) Ask(label string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if label != "" {
		fmt.Fprintf(p.out, "%s ", label)
	}
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
