// Package console is the interactive command console over a session root,
// and the rescue console run after a panic.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/zeusync/scenekit/internal/app"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/observability/log"
)

// Handler runs one command. Returned errors are printed and the console
// keeps going.
type Handler func(ctx context.Context, root *app.Root, p *Prompter) error

type Command struct {
	Name        string
	Description string
	Handler     Handler
}

// ExitCommand ends the loop, as does an empty line.
const ExitCommand = "exit"

type Console struct {
	root     *app.Root
	prompter *Prompter
	logger   log.Log
	prompt   string

	commands map[string]Command
	order    []string
	// guard recovers handler panics into errors.
	guard bool
	exit  func(code int)
}

type Option func(*Console)

// WithPrompt sets the text printed before every command.
func WithPrompt(prompt string) Option {
	return func(c *Console) { c.prompt = prompt }
}

// WithAbortWord sets the word that cancels a prompt.
func WithAbortWord(word string) Option {
	return func(c *Console) { c.prompter.abort = word }
}

// WithEcho echoes every line read, for scripted sessions.
func WithEcho() Option {
	return func(c *Console) { c.prompter.SetEcho(true) }
}

// WithExit replaces os.Exit for the crash command.
func WithExit(exit func(code int)) Option {
	return func(c *Console) { c.exit = exit }
}

// New builds the full console over root reading commands from in.
func New(root *app.Root, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := newConsole(root, in, out)
	if root.Config != nil {
		c.prompt = root.Config.Console.Prompt
		c.prompter.abort = root.Config.Console.AbortWord
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.prompter.abort == "" {
		c.prompter.abort = DefaultAbortWord
	}
	c.register(c.standardCommands()...)
	return c
}

func newConsole(root *app.Root, in io.Reader, out io.Writer) *Console {
	logger := log.Log(log.Nop())
	if root != nil && root.Logger != nil {
		logger = root.Logger
	}
	return &Console{
		root:     root,
		prompter: NewPrompter(in, out, DefaultAbortWord),
		logger:   logger.With(log.String("component", "console")),
		prompt:   "> ",
		commands: make(map[string]Command),
		exit:     os.Exit,
	}
}

func (c *Console) register(cmds ...Command) {
	for _, cmd := range cmds {
		name := strings.ToLower(cmd.Name)
		if _, ok := c.commands[name]; !ok {
			c.order = append(c.order, name)
		}
		c.commands[name] = cmd
	}
}

// Commands returns the command table in registration order.
func (c *Console) Commands() []Command {
	out := make([]Command, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.commands[name])
	}
	return out
}

// Run reads and runs commands until exit, an empty line, the end of input
// or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.prompter.Printf("%s", c.prompt)
		line, err := c.prompter.line()
		if errors.Is(err, ErrInputClosed) {
			c.prompter.Println()
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			return nil
		}
		name := strings.ToLower(fields[0])
		if name == ExitCommand {
			return nil
		}

		cmd, ok := c.commands[name]
		if !ok {
			c.prompter.Printf("unknown command %q, type help for the list\n", name)
			continue
		}
		c.dispatch(ctx, cmd)
	}
}

func (c *Console) dispatch(ctx context.Context, cmd Command) {
	var action ids.ObjectID
	if c.root != nil && c.root.IDs != nil {
		action = c.root.IDs.Next(ids.Action)
	}
	logger := c.logger.With(log.String("command", cmd.Name), log.Uint64("action", uint64(action)))

	err := c.call(ctx, cmd)
	switch {
	case err == nil:
		logger.Debug("command done")
	case errors.Is(err, ErrAborted):
		c.prompter.Println("aborted")
	case errors.Is(err, ErrInputClosed):
		c.prompter.Println()
	default:
		logger.Warn("command failed", log.Error(err))
		c.prompter.Printf("error: %v\n", err)
	}
}

func (c *Console) call(ctx context.Context, cmd Command) (err error) {
	if c.guard {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", cmd.Name, r)
			}
		}()
	}
	return cmd.Handler(ctx, c.root, c.prompter)
}

func (c *Console) help(_ context.Context, _ *app.Root, p *Prompter) error {
	names := append(slices.Clone(c.order), ExitCommand)
	width := 0
	for _, name := range names {
		width = max(width, len(name))
	}
	for _, name := range names {
		desc := "leave the console (or press enter on an empty line)"
		if cmd, ok := c.commands[name]; ok {
			desc = cmd.Description
		}
		p.Printf("  %-*s  %s\n", width, name, desc)
	}
	p.Printf("type %q at any prompt to cancel the command\n", p.AbortWord())
	return nil
}
