// Package parser turns command line arguments into a resolved execution
// context. Arguments are order-free: each one is classified against the known
// languages, env types and command types, and anything the user omits is
// filled from the previously saved context.
package parser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"cpenv/internal/config"
	"cpenv/internal/contest"
	"cpenv/internal/docker"
	appErr "cpenv/pkg/errors"
)

// Options carries the execution flags parsed from the command line.
type Options struct {
	Parallel   bool
	MaxWorkers int
}

// savedContext is the persisted last-used selection, so a user can type just
// `cpenv test` after the first full invocation.
type savedContext struct {
	Language    string `json:"language"`
	EnvType     string `json:"env_type"`
	ContestName string `json:"contest_name"`
	ProblemName string `json:"problem_name"`
}

// Parser classifies arguments against the environment tree.
type Parser struct {
	tree        *config.EnvTree
	cfg         config.Config
	contextPath string
}

// New creates a parser. contextPath names the saved-context file; empty
// disables persistence.
func New(tree *config.EnvTree, cfg config.Config, contextPath string) *Parser {
	return &Parser{tree: tree, cfg: cfg, contextPath: contextPath}
}

// Parse builds the execution context from arguments. The command type is
// required on every invocation; language, env type, contest and problem fall
// back to the saved context when omitted.
func (p *Parser) Parse(args []string) (*contest.ExecutionContext, Options, error) {
	prev := p.loadSaved()
	opts := Options{MaxWorkers: p.cfg.MaxWorkers}

	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--parallel" || arg == "-p":
			opts.Parallel = true
		case strings.HasPrefix(arg, "--max-workers="):
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--max-workers="))
			if err != nil || n <= 0 {
				return nil, opts, appErr.ValidationError("max-workers", "must be a positive integer")
			}
			opts.MaxWorkers = n
		case strings.HasPrefix(arg, "-"):
			return nil, opts, appErr.Newf(appErr.InvalidParams, "unknown flag %q", arg)
		default:
			rest = append(rest, arg)
		}
	}

	ec := &contest.ExecutionContext{
		Language:      prev.Language,
		EnvType:       prev.EnvType,
		ContestName:   prev.ContestName,
		ProblemName:   prev.ProblemName,
		WorkspaceRoot: p.cfg.WorkspaceRoot,
		RunID:         uuid.NewString(),
	}
	if ec.EnvType == "" {
		ec.EnvType = contest.EnvTypeLocal
	}

	rest = p.scanLanguage(rest, ec)
	rest = scanEnvType(rest, ec)
	rest = p.scanCommandType(rest, ec)

	// Whatever remains names the target: one value updates the problem,
	// two update contest then problem.
	switch len(rest) {
	case 0:
	case 1:
		ec.ProblemName = rest[0]
	case 2:
		ec.ContestName = rest[0]
		ec.ProblemName = rest[1]
	default:
		return nil, opts, appErr.Newf(appErr.InvalidParams,
			"unrecognized arguments: %s", strings.Join(rest, " "))
	}

	if ec.Language == "" {
		return nil, opts, appErr.ValidationError("language", "required and no previous selection saved")
	}
	if ec.CommandType == "" {
		return nil, opts, appErr.ValidationError("command", "required")
	}

	ec.Resolver = p.newResolver(ec.Language)
	p.save(ec)
	return ec, opts, nil
}

func (p *Parser) scanLanguage(args []string, ec *contest.ExecutionContext) []string {
	for i, arg := range args {
		if p.tree.HasLanguage(arg) {
			ec.Language = arg
			return append(args[:i:i], args[i+1:]...)
		}
	}
	return args
}

func scanEnvType(args []string, ec *contest.ExecutionContext) []string {
	for i, arg := range args {
		if arg == contest.EnvTypeLocal || arg == "docker" {
			ec.EnvType = arg
			return append(args[:i:i], args[i+1:]...)
		}
	}
	return args
}

func (p *Parser) scanCommandType(args []string, ec *contest.ExecutionContext) []string {
	if ec.Language == "" {
		return args
	}
	for i, arg := range args {
		if _, err := p.tree.Resolve(ec.Language, "commands", arg); err == nil {
			ec.CommandType = arg
			return append(args[:i:i], args[i+1:]...)
		}
	}
	return args
}

// newResolver wires the Dockerfile resolver over the configured directory
// layout: {dockerfile_dir}/{language}/Dockerfile and oj.Dockerfile.
func (p *Parser) newResolver(language string) *docker.DockerfileResolver {
	dir := filepath.Join(p.cfg.DockerfileDir, language)
	loader := func(path string) (string, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return docker.NewDockerfileResolver(
		filepath.Join(dir, "Dockerfile"),
		filepath.Join(dir, "oj.Dockerfile"),
		loader,
	)
}

func (p *Parser) loadSaved() savedContext {
	var saved savedContext
	if p.contextPath == "" {
		return saved
	}
	data, err := os.ReadFile(p.contextPath)
	if err != nil {
		return saved
	}
	// A corrupt context file only costs the user retyping their selection.
	_ = json.Unmarshal(data, &saved)
	return saved
}

func (p *Parser) save(ec *contest.ExecutionContext) {
	if p.contextPath == "" {
		return
	}
	data, err := json.MarshalIndent(savedContext{
		Language:    ec.Language,
		EnvType:     ec.EnvType,
		ContestName: ec.ContestName,
		ProblemName: ec.ProblemName,
	}, "", "  ")
	if err != nil {
		return
	}
	if dir := filepath.Dir(p.contextPath); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	_ = os.WriteFile(p.contextPath, data, 0o644)
}
