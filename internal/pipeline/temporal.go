package pipeline

import (
	"context"
	"fmt"
	"time"

	"AssetForge/internal/config"
	"AssetForge/pkg/plugin"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"
)

// TemporalWorker hosts the asset transform workflow and its activities on a
// Temporal task queue, so a transform survives worker restarts and failed
// attempts are retried by the server instead of ad hoc loops.
type TemporalWorker struct {
	client       client.Client
	worker       worker.Worker
	orchestrator *Orchestrator
	config       *config.Config
	logger       *zap.Logger
}

// TransformWorkflowOutput is the workflow's serializable result.
type TransformWorkflowOutput struct {
	Outcome  *TransformOutcome `json:"outcome"`
	Duration time.Duration     `json:"duration"`
}

func NewTemporalWorker(c client.Client, orchestrator *Orchestrator, cfg *config.Config, logger *zap.Logger) *TemporalWorker {
	return &TemporalWorker{
		client:       c,
		orchestrator: orchestrator,
		config:       cfg,
		logger:       logger,
	}
}

func (tw *TemporalWorker) Start() error {
	tw.worker = worker.New(tw.client, tw.config.Temporal.TaskQueue, worker.Options{})

	activities := NewActivities(tw.orchestrator, tw.logger)

	tw.worker.RegisterWorkflow(AssetTransformWorkflow)
	tw.worker.RegisterActivity(activities.HandshakeActivity)
	tw.worker.RegisterActivity(activities.TransformActivity)

	return tw.worker.Start()
}

func (tw *TemporalWorker) Stop() {
	if tw.worker != nil {
		tw.worker.Stop()
	}
}

// Execute starts the transform workflow and blocks for its result.
func (tw *TemporalWorker) Execute(ctx context.Context, job TransformJob) (*TransformOutcome, error) {
	workflowOptions := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("asset-transform-%s", job.ID),
		TaskQueue:                tw.config.Temporal.TaskQueue,
		WorkflowExecutionTimeout: 60 * time.Minute,
		WorkflowRunTimeout:       60 * time.Minute,
	}

	we, err := tw.client.ExecuteWorkflow(ctx, workflowOptions, AssetTransformWorkflow, job)
	if err != nil {
		return nil, fmt.Errorf("failed to start workflow: %w", err)
	}

	var result TransformWorkflowOutput
	if err := we.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("workflow execution failed: %w", err)
	}
	return result.Outcome, nil
}

// AssetTransformWorkflow validates the transform through a cheap handshake
// activity first, then runs the full transform. The handshake catches bad
// plugin ids and invalid input before any media is fetched or encoded.
func AssetTransformWorkflow(ctx workflow.Context, job TransformJob) (TransformWorkflowOutput, error) {
	logger := workflow.GetLogger(ctx)
	startTime := workflow.Now(ctx)

	logger.Info("Starting asset transform workflow",
		"job", job.ID,
		"plugin", job.PluginID,
		"unit", job.UnitID)

	var result TransformWorkflowOutput

	handshakeOptions := workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	handshakeCtx := workflow.WithActivityOptions(ctx, handshakeOptions)

	var handshake plugin.HandshakeResult
	if err := workflow.ExecuteActivity(handshakeCtx, "HandshakeActivity", job).Get(ctx, &handshake); err != nil {
		return result, fmt.Errorf("handshake failed: %w", err)
	}
	logger.Info("Handshake declared variants", "count", len(handshake.Variants))

	transformOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    2,
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
		},
	}
	transformCtx := workflow.WithActivityOptions(ctx, transformOptions)

	var outcome TransformOutcome
	if err := workflow.ExecuteActivity(transformCtx, "TransformActivity", job).Get(ctx, &outcome); err != nil {
		return result, fmt.Errorf("transform failed: %w", err)
	}

	result.Outcome = &outcome
	result.Duration = workflow.Now(ctx).Sub(startTime)
	logger.Info("Asset transform workflow completed",
		"job", job.ID,
		"state", string(outcome.State),
		"duration", result.Duration)
	return result, nil
}

// Activities bundles the orchestrator behind Temporal's activity interface.
type Activities struct {
	orchestrator *Orchestrator
	logger       *zap.Logger
}

func NewActivities(orchestrator *Orchestrator, logger *zap.Logger) *Activities {
	return &Activities{orchestrator: orchestrator, logger: logger}
}

func (a *Activities) HandshakeActivity(ctx context.Context, job TransformJob) (plugin.HandshakeResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running handshake", "job", job.ID, "plugin", job.PluginID)
	return a.orchestrator.Handshake(ctx, job)
}

func (a *Activities) TransformActivity(ctx context.Context, job TransformJob) (*TransformOutcome, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Running transform", "job", job.ID, "plugin", job.PluginID)

	outcome, err := a.orchestrator.Run(ctx, job)
	if err != nil {
		return outcome, err
	}
	if failed := outcomeFailures(outcome); failed > 0 {
		logger.Warn("Transform finished with failed variants", "job", job.ID, "failed", failed)
	}
	return outcome, nil
}

func outcomeFailures(outcome *TransformOutcome) int {
	failed := 0
	for _, v := range outcome.Variants {
		if v.Error != "" {
			failed++
		}
	}
	return failed
}
