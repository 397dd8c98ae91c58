package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ConfirmToken is the only answer that approves a gated step.
const ConfirmToken = "Y"

// lineConfirmer prompts on out and reads one line from in per question.
// Only the exact token "Y" approves; anything else, including "y" and
// "yes", declines.
type lineConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newLineConfirmer(in io.Reader, out io.Writer) *lineConfirmer {
	return &lineConfirmer{in: bufio.NewReader(in), out: out}
}

func (c *lineConfirmer) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(c.out, "%s [%s to confirm]: ", prompt, ConfirmToken)
	line, err := c.in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		if err == io.EOF {
			return false, fmt.Errorf("no answer to %q: input closed", prompt)
		}
		return false, err
	}
	return strings.TrimRight(line, "\r\n") == ConfirmToken, nil
}

// assumeYes approves every gate; used by --yes.
type assumeYes struct{ out io.Writer }

func (a assumeYes) Confirm(prompt string) (bool, error) {
	fmt.Fprintf(a.out, "%s [%s to confirm]: %s (--yes)\n", prompt, ConfirmToken, ConfirmToken)
	return true, nil
}
