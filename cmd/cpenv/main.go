package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"cpenv/internal/cli/parser"
	"cpenv/internal/cli/repl"
	"cpenv/internal/common/db"
	"cpenv/internal/config"
	"cpenv/internal/contest"
	"cpenv/internal/di"
	"cpenv/internal/docker"
	"cpenv/internal/docker/state"
	"cpenv/internal/drivers"
	"cpenv/internal/repository"
	"cpenv/internal/workflow"
	"cpenv/pkg/utils/contextkey"
	"cpenv/pkg/utils/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("cpenv", flag.ContinueOnError)
	configPath := flags.String("config", defaultConfigPath(), "Path to config file")
	interactive := flags.Bool("i", false, "Start the interactive shell")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		return 1
	}
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return 1
	}

	if flags.NArg() > 0 && judgeCommands[flags.Arg(0)] {
		return runJudgeCommand(context.Background(), cfg, flags.Args())
	}

	tree, err := config.LoadEnvTree(cfg.EnvConfigPaths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load environment config failed: %v\n", err)
		return 1
	}

	container, err := buildContainer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wiring failed: %v\n", err)
		return 1
	}
	stateMgr := state.NewDockerStateManager(cfg.StateFilePath)

	home, _ := os.UserHomeDir()
	contextPath := filepath.Join(home, ".config", "cpenv", "last_context.json")
	p := parser.New(tree, cfg, contextPath)
	runner := &workflowRunner{tree: tree, container: container, stateMgr: stateMgr}

	if *interactive || flags.NArg() == 0 {
		historyPath := filepath.Join(home, ".config", "cpenv", "history")
		session := repl.New(p, runner, tree.Languages(), historyPath)
		if err := session.Run(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
		return 0
	}

	ec, opts, err := p.Parse(flags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	result, err := runner.Run(context.Background(), ec, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	printResult(result)
	if !result.Success {
		return 1
	}
	return 0
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cpenv", "config.yaml")
}

// loadConfig falls back to defaults when no config file exists, so a fresh
// install works without any setup.
func loadConfig(path string) (config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildContainer registers the drivers and repositories. Tracking falls back
// to in-memory repositories when no database is configured.
func buildContainer(cfg config.Config) (*di.Container, error) {
	container := di.New()

	fileDriver := drivers.NewFileDriver()
	shellDriver := drivers.NewShellDriver(cfg.CommandTimeout)
	container.Register(di.FileDriver, fileDriver)
	container.Register(di.ShellDriver, drivers.NewUnifiedDriver(fileDriver, shellDriver, nil))

	var containers repository.ContainerRepository = repository.NewMemoryContainerRepository()
	var images repository.ImageRepository = repository.NewMemoryImageRepository()
	if cfg.Tracking.Enabled && cfg.Tracking.DSN != "" {
		database, err := db.NewMySQL(cfg.Tracking.DSN)
		if err != nil {
			return nil, fmt.Errorf("connect tracking database failed: %w", err)
		}
		if err := repository.EnsureSchema(context.Background(), database); err != nil {
			return nil, fmt.Errorf("prepare tracking schema failed: %w", err)
		}
		provider := db.NewStaticProvider(database)
		containers = repository.NewContainerRepository(provider)
		images = repository.NewImageRepository(provider)
	}
	container.Register(di.ContainerRepository, containers)
	container.Register(di.ImageRepository, images)

	var dockerDriver docker.Driver = docker.NewCLIDriver(shellDriver, cfg.CommandTimeout, cfg.BuildTimeout)
	dockerDriver = docker.NewTrackedDriver(dockerDriver, containers, images)
	container.Register(di.DockerDriver, drivers.NewUnifiedDriver(fileDriver, shellDriver, dockerDriver))

	return container, nil
}

// workflowRunner adapts the workflow service to the shell's Runner interface.
type workflowRunner struct {
	tree      *config.EnvTree
	container *di.Container
	stateMgr  *state.DockerStateManager
}

func (r *workflowRunner) Run(ctx context.Context, ec *contest.ExecutionContext, opts parser.Options) (*workflow.WorkflowExecutionResult, error) {
	ctx = context.WithValue(ctx, contextkey.RunID, ec.RunID)
	ctx = context.WithValue(ctx, contextkey.Contest, ec.ContestName)
	ctx = context.WithValue(ctx, contextkey.Problem, ec.ProblemName)
	logger.Infof(ctx, "running %s for %s/%s", ec.CommandType, ec.ContestName, ec.ProblemName)

	service := workflow.NewWorkflowExecutionService(ec, r.tree, r.container, r.stateMgr)
	return service.ExecuteWorkflow(ctx, opts.Parallel, opts.MaxWorkers)
}

func printResult(result *workflow.WorkflowExecutionResult) {
	for _, res := range append(result.PreparationResults, result.Results...) {
		status := "ok"
		if !res.Success {
			status = "failed"
		}
		fmt.Printf("%-30s %s (%dms)\n", res.Name, status, res.DurationMs)
		if !res.Success && res.ErrorOutput() != "" {
			fmt.Printf("  %s\n", res.ErrorOutput())
		}
	}
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	for _, msg := range result.Errors {
		fmt.Printf("error: %s\n", msg)
	}
}
