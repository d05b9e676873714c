// Package workflow drives one workflow invocation end to end: step lookup,
// request construction, environment preparation and execution.
package workflow

import (
	"context"

	"cpenv/internal/contest"
	"cpenv/internal/di"
	"cpenv/internal/docker"
	"cpenv/internal/docker/state"
	"cpenv/internal/envres"
	"cpenv/internal/workflow/composite"
	"cpenv/internal/workflow/factory"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	"cpenv/internal/workflow/step"
	appErr "cpenv/pkg/errors"
	"cpenv/pkg/utils/logger"
)

// WorkflowExecutionResult aggregates the outcome of one invocation. Success is
// true iff every step result succeeded; allow-failure steps surface in
// Warnings instead of Errors.
type WorkflowExecutionResult struct {
	Success            bool
	Results            []*result.OperationResult
	PreparationResults []*result.OperationResult
	Errors             []string
	Warnings           []string
}

// StepsProvider yields the ordered step descriptors for a language and
// command type. The layered config tree satisfies it.
type StepsProvider interface {
	Steps(language, commandType string) ([]step.Step, error)
}

// WorkflowExecutionService runs the workflow for one resolved execution
// context. The driver comes from the DI boundary so local and Docker
// execution share the identical pipeline.
type WorkflowExecutionService struct {
	execCtx   *contest.ExecutionContext
	tree      StepsProvider
	container *di.Container
	stateMgr  *state.DockerStateManager
}

// NewWorkflowExecutionService wires a service. The state manager may be nil;
// preparation then always rebuilds when targeting Docker.
func NewWorkflowExecutionService(execCtx *contest.ExecutionContext, tree StepsProvider, container *di.Container, stateMgr *state.DockerStateManager) *WorkflowExecutionService {
	return &WorkflowExecutionService{
		execCtx:   execCtx,
		tree:      tree,
		container: container,
		stateMgr:  stateMgr,
	}
}

// ExecuteWorkflow builds and runs the workflow. When parallel is requested
// steps run on a bounded worker pool; the caller is responsible for only
// requesting parallel execution for order-independent steps.
func (s *WorkflowExecutionService) ExecuteWorkflow(ctx context.Context, parallel bool, maxWorkers int) (*WorkflowExecutionResult, error) {
	steps, err := s.tree.Steps(s.execCtx.Language, s.execCtx.CommandType)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.StepsNotFound,
			"no steps configured for command type %q", s.execCtx.CommandType)
	}

	drv, err := s.resolveDriver()
	if err != nil {
		return nil, err
	}

	ctrl, err := s.newController()
	if err != nil {
		return nil, err
	}
	requests, err := factory.NewRegistry(ctrl).CreateRequests(steps)
	if err != nil {
		return nil, err
	}

	out := &WorkflowExecutionResult{Success: true}

	if !s.execCtx.IsLocal() {
		prep, err := s.prepareEnvironment(ctx, drv)
		if err != nil {
			return nil, err
		}
		out.PreparationResults = prep
		for _, res := range prep {
			if !res.Success && !res.AllowFailure {
				out.Success = false
				out.Errors = append(out.Errors, res.ErrorOutput())
				return out, nil
			}
		}
	}

	runnables := make([]composite.Runnable, len(requests))
	for i, req := range requests {
		runnables[i] = req
	}
	graph, err := composite.NewCompositeStructure(s.execCtx.CommandType, runnables...)
	if err != nil {
		return nil, err
	}
	logger.Debugf(ctx, "executing %d steps for %s/%s", graph.CountLeafRequests(),
		s.execCtx.Language, s.execCtx.CommandType)

	var results []*result.OperationResult
	if parallel {
		results, err = graph.ExecuteParallel(ctx, drv, maxWorkers)
	} else {
		results, err = graph.ExecuteSequential(ctx, drv)
	}
	if err != nil {
		return nil, err
	}

	out.Results = results
	for _, res := range results {
		if res.Success {
			continue
		}
		if res.AllowFailure {
			out.Warnings = append(out.Warnings, res.ErrorOutput())
		} else {
			out.Success = false
			out.Errors = append(out.Errors, res.ErrorOutput())
		}
	}
	return out, nil
}

// resolveDriver picks the request driver for the context's env type from the
// DI boundary. A missing registration is a wiring fault and surfaces
// immediately.
func (s *WorkflowExecutionService) resolveDriver() (request.Driver, error) {
	key := di.DockerDriver
	if s.execCtx.IsLocal() {
		key = di.ShellDriver
	}
	svc, err := s.container.Resolve(key)
	if err != nil {
		return nil, err
	}
	drv, ok := svc.(request.Driver)
	if !ok || drv == nil {
		return nil, appErr.MissingDriverError(string(key))
	}
	return drv, nil
}

// newController assembles the handler pair for the active environment.
func (s *WorkflowExecutionService) newController() (factory.Controller, error) {
	if s.execCtx.IsLocal() {
		return &envController{
			execCtx: s.execCtx,
			files:   envres.NewLocalFileHandler(),
			runner:  envres.NewLocalRunHandler(),
		}, nil
	}

	checker, err := envres.NewPathChecker(s.execCtx.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	names := s.execCtx.DockerNames()
	files, err := envres.NewDockerFileHandler(checker, names.ContainerName)
	if err != nil {
		return nil, err
	}
	runner, err := envres.NewDockerRunHandler(names.ContainerName)
	if err != nil {
		return nil, err
	}
	return &envController{execCtx: s.execCtx, files: files, runner: runner}, nil
}

// prepareEnvironment brings the Docker image and container up to date before
// the workflow steps run. Preparation is always sequential: a container can
// only start after its image exists.
func (s *WorkflowExecutionService) prepareEnvironment(ctx context.Context, drv request.Driver) ([]*result.OperationResult, error) {
	decision := state.RebuildDecision{
		ImageRebuild:        true,
		OJImageRebuild:      true,
		ContainerRecreate:   true,
		OJContainerRecreate: true,
	}
	if s.stateMgr != nil {
		decision = s.stateMgr.CheckRebuildNeeded(s.execCtx)
	}
	if !decision.Any() {
		return nil, nil
	}

	requests := s.preparationRequests(decision)
	if len(requests) == 0 {
		return nil, nil
	}

	runnables := make([]composite.Runnable, len(requests))
	for i, req := range requests {
		runnables[i] = req
	}
	graph, err := composite.NewCompositeStructure("prepare_environment", runnables...)
	if err != nil {
		return nil, err
	}
	results, err := graph.ExecuteSequential(ctx, drv)
	if err != nil {
		return nil, err
	}

	for _, res := range results {
		if !res.Success && !res.AllowFailure {
			return results, nil
		}
	}
	if s.stateMgr != nil {
		if err := s.stateMgr.UpdateState(s.execCtx); err != nil {
			logger.Debugf(ctx, "state update failed: %v", err)
		}
	}
	return results, nil
}

// preparationRequests turns a rebuild decision into the ordered build and
// container lifecycle requests for both roles. Stop and rm requests allow
// failure since the old container may not exist.
func (s *WorkflowExecutionService) preparationRequests(decision state.RebuildDecision) []request.Request {
	names := s.execCtx.DockerNames()
	var requests []request.Request

	appendPair := func(role docker.Role, rebuild, recreate bool, image, container string) {
		var content string
		if s.execCtx.Resolver != nil {
			content = s.execCtx.Resolver.ContentFor(role)
		}
		if rebuild && content != "" {
			build := request.NewDockerRequest(request.DockerBuild, image, "", nil)
			build.Options.DockerfileText = content
			build.SetName("prepare_build_" + image)
			requests = append(requests, build)
		}
		if recreate {
			stop := request.NewDockerRequest(request.DockerStop, "", container, nil)
			stop.SetName("prepare_stop_" + container)
			stop.SetAllowFailure(true)
			rm := request.NewDockerRequest(request.DockerRemove, "", container, nil)
			rm.Options.Force = true
			rm.SetName("prepare_rm_" + container)
			rm.SetAllowFailure(true)
			run := request.NewDockerRequest(request.DockerRun, image, container, nil)
			run.Options.Detach = true
			run.Options.Volumes = []string{s.execCtx.WorkspaceRoot + ":" + s.execCtx.WorkspaceRoot}
			run.Options.Workdir = s.execCtx.WorkspaceRoot
			run.SetName("prepare_run_" + container)
			requests = append(requests, stop, rm, run)
		}
	}

	appendPair(docker.RoleMain, decision.ImageRebuild, decision.ContainerRecreate,
		names.ImageName, names.ContainerName)
	appendPair(docker.RoleOJ, decision.OJImageRebuild, decision.OJContainerRecreate,
		names.OJImageName, names.OJContainerName)
	return requests
}

// envController adapts the execution context and handler pair to the factory
// boundary.
type envController struct {
	execCtx *contest.ExecutionContext
	files   envres.FileHandler
	runner  envres.RunHandler
}

func (c *envController) FormatString(s string) string { return c.execCtx.FormatString(s) }
func (c *envController) Files() envres.FileHandler    { return c.files }
func (c *envController) Runner() envres.RunHandler    { return c.runner }
