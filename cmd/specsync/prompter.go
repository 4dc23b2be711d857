package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/specsync/internal/bullets"
)

// linePrompter asks on out and reads y/n answers from in. End of input
// declines every remaining bullet.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
	eof bool
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements mutator.Prompter.
func (p *linePrompter) Confirm(ctx context.Context, specPath string, b bullets.Bullet) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.eof {
		return false, nil
	}
	fmt.Fprintf(p.out, "Add %q to %s? [y/N] ", b.Text, filepath.Base(specPath))

	line, err := p.in.ReadString('\n')
	if errors.Is(err, io.EOF) {
		p.eof = true
		fmt.Fprintln(p.out)
	} else if err != nil {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
