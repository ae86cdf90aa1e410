package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeusync/scenekit/internal/core/dynamic"
)

var (
	// ErrAborted is returned by a prompt when the abort word is typed.
	ErrAborted = errors.New("aborted")
	// ErrInputClosed is returned by a prompt when the input ends.
	ErrInputClosed = errors.New("input closed")
)

// DefaultAbortWord cancels a prompt when typed on its own.
const DefaultAbortWord = "abort"

// Prompter reads answers line by line. Every prompt returns ErrAborted when
// the abort word is typed and ErrInputClosed at the end of input.
type Prompter struct {
	in    *bufio.Scanner
	out   io.Writer
	abort string
	// echo writes every line read back to out, for scripted input.
	echo bool
}

func NewPrompter(in io.Reader, out io.Writer, abortWord string) *Prompter {
	if abortWord == "" {
		abortWord = DefaultAbortWord
	}
	return &Prompter{in: bufio.NewScanner(in), out: out, abort: abortWord}
}

// SetEcho turns echoing of read lines on or off.
func (p *Prompter) SetEcho(echo bool) { p.echo = echo }

func (p *Prompter) AbortWord() string { return p.abort }

// Printf writes to the console output.
func (p *Prompter) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *Prompter) Println(args ...any) {
	_, _ = fmt.Fprintln(p.out, args...)
}

// line reads one trimmed line. It does not check the abort word.
func (p *Prompter) line() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInputClosed, err)
		}
		return "", ErrInputClosed
	}
	text := strings.TrimSpace(p.in.Text())
	if p.echo {
		p.Println(text)
	}
	return text, nil
}

func (p *Prompter) answer() (string, error) {
	text, err := p.line()
	if err != nil {
		return "", err
	}
	if strings.EqualFold(text, p.abort) {
		return "", ErrAborted
	}
	return text, nil
}

// Text asks question and returns the answer, which may be empty.
func (p *Prompter) Text(question string) (string, error) {
	p.Printf("%s: ", question)
	return p.answer()
}

// Choice asks to pick one of options, by number or by label, and returns its
// index. Invalid answers are asked again.
func (p *Prompter) Choice(question string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%s: nothing to choose from", question)
	}

	for {
		p.Println(question)
		for i, option := range options {
			p.Printf("  %d) %s\n", i+1, option)
		}
		p.Printf("choice: ")

		text, err := p.answer()
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		for i, option := range options {
			if strings.EqualFold(text, option) {
				return i, nil
			}
		}
		p.Printf("%q is not one of the choices (type %q to cancel)\n", text, p.abort)
	}
}

// Confirm asks a yes/no question. An empty answer is no.
func (p *Prompter) Confirm(question string) (bool, error) {
	for {
		p.Printf("%s [y/N]: ", question)
		text, err := p.answer()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(text) {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		}
		p.Println("please answer yes or no")
	}
}

// Value asks for a yaml value such as 1.5, "text", [1, 2] or {x: 1}. An
// empty answer returns ok false.
func (p *Prompter) Value(question string) (v dynamic.Value, ok bool, err error) {
	text, err := p.Text(question)
	if err != nil || text == "" {
		return dynamic.Value{}, false, err
	}
	v, err = dynamic.ParseYAML([]byte(text))
	if err != nil {
		return dynamic.Value{}, false, fmt.Errorf("parse %q: %w", text, err)
	}
	return v, true, nil
}
