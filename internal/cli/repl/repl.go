// Package repl provides the interactive shell. Each line is parsed exactly
// like a command line invocation, so `py docker test abc300 a` inside the
// shell behaves the same as `cpenv py docker test abc300 a`.
package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"

	"cpenv/internal/cli/parser"
	"cpenv/internal/contest"
	"cpenv/internal/workflow"
)

// Runner executes one resolved workflow invocation.
type Runner interface {
	Run(ctx context.Context, ec *contest.ExecutionContext, opts parser.Options) (*workflow.WorkflowExecutionResult, error)
}

// Session holds the interactive shell state.
type Session struct {
	parser    *parser.Parser
	runner    Runner
	languages []string
	history   string
}

// New creates a shell session. historyPath may be empty to disable history.
func New(p *parser.Parser, runner Runner, languages []string, historyPath string) *Session {
	return &Session{parser: p, runner: runner, languages: languages, history: historyPath}
}

// Run reads and executes lines until EOF or an exit command.
func (s *Session) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "cpenv> ",
		HistoryFile:     s.history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if done := s.handleSystemCommand(rl, line); done {
			return nil
		} else if s.isSystemCommand(line) {
			continue
		}
		if err := s.handleInvocation(ctx, rl, line); err != nil {
			printLine(rl, "error: %v", err)
		}
	}
}

func (s *Session) isSystemCommand(line string) bool {
	switch strings.Fields(line)[0] {
	case "help", "languages", "exit", "quit":
		return true
	}
	return false
}

// handleSystemCommand returns true when the session should end.
func (s *Session) handleSystemCommand(rl *readline.Instance, line string) bool {
	switch line {
	case "exit", "quit":
		printLine(rl, "bye")
		return true
	case "help":
		s.printHelp(rl)
	case "languages":
		printLine(rl, "%s", strings.Join(s.languages, " "))
	}
	return false
}

func (s *Session) handleInvocation(ctx context.Context, rl *readline.Instance, line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse line failed: %w", err)
	}
	ec, opts, err := s.parser.Parse(args)
	if err != nil {
		return err
	}

	printLine(rl, "%s %s %s/%s (%s)", ec.Language, ec.CommandType, ec.ContestName, ec.ProblemName, ec.EnvType)
	result, err := s.runner.Run(ctx, ec, opts)
	if err != nil {
		return err
	}
	renderResult(rl, result)
	return nil
}

func renderResult(rl *readline.Instance, result *workflow.WorkflowExecutionResult) {
	for _, res := range append(result.PreparationResults, result.Results...) {
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		printLine(rl, "  %-30s %s (%dms)", res.Name, status, res.DurationMs)
	}
	for _, warning := range result.Warnings {
		printLine(rl, "warning: %s", warning)
	}
	for _, msg := range result.Errors {
		printLine(rl, "error: %s", msg)
	}
	if result.Success {
		printLine(rl, "done")
	} else {
		printLine(rl, "failed")
	}
}

func (s *Session) printHelp(rl *readline.Instance) {
	printLine(rl, "usage: [language] [local|docker] <command> [contest] [problem]")
	printLine(rl, "flags: --parallel | --max-workers=N")
	printLine(rl, "system: help | languages | exit")
	printLine(rl, "examples:")
	printLine(rl, "  py docker test abc300 a")
	printLine(rl, "  test b")
}

func printLine(rl *readline.Instance, format string, args ...interface{}) {
	fmt.Fprintf(rl.Stdout(), format+"\n", args...)
}
