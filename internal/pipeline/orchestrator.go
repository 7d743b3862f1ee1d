package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"AssetForge/internal/pipeline/storage"
	"AssetForge/pkg/plugin"
	"AssetForge/pkg/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransformJob names the asset, the owning storage unit and container, and
// the transformer contribution to run.
type TransformJob struct {
	ID          string                  `json:"id"`
	UnitID      string                  `json:"unit_id"`
	ContainerID string                  `json:"container_id"`
	PluginID    string                  `json:"plugin_id"`
	Request     plugin.TransformRequest `json:"request"`
}

// VariantOutcome is the persistent record of one declared variant after a
// transform: where it lives and whether it made it.
type VariantOutcome struct {
	ID         string             `json:"id"`
	Name       string             `json:"name,omitempty"`
	EntryPoint string             `json:"entry_point"`
	MimeType   string             `json:"mime_type"`
	Type       plugin.VariantType `json:"type"`
	Path       string             `json:"path"`
	Error      string             `json:"error,omitempty"`
}

type TransformOutcome struct {
	JobID    string                `json:"job_id"`
	State    plugin.TransformState `json:"state"`
	Variants []VariantOutcome      `json:"variants"`
}

// Orchestrator runs one transform end to end: resolve the contribution,
// validate input, handshake, stage the source locally, fan the declared
// variants into the transform call and fold the per-variant results back.
type Orchestrator struct {
	registry   *plugin.Registry
	provider   storage.Provider
	ingestor   *Ingestor
	engine     *schema.Engine
	pathPrefix string
	logger     *zap.Logger
}

func NewOrchestrator(registry *plugin.Registry, provider storage.Provider, ingestor *Ingestor, engine *schema.Engine, pathPrefix string, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		provider:   provider,
		ingestor:   ingestor,
		engine:     engine,
		pathPrefix: pathPrefix,
		logger:     logger,
	}
}

// resolve finds the transformer and validates the request input against the
// contribution's input schema.
func (o *Orchestrator) resolve(job TransformJob) (plugin.Transformer, plugin.TransformRequest, error) {
	entry := o.registry.GetPluginByID(plugin.CategoryTransformer, job.PluginID)
	if entry == nil {
		return nil, plugin.TransformRequest{}, fmt.Errorf("unknown transformer: %s", job.PluginID)
	}
	transformer, err := entry.Transformer()
	if err != nil {
		return nil, plugin.TransformRequest{}, err
	}

	input := job.Request.Input
	if len(entry.InputSchema) > 0 {
		input, err = o.engine.ProcessInbound(entry.InputSchema, input)
		if err != nil {
			return nil, plugin.TransformRequest{}, fmt.Errorf("invalid transform input: %w", err)
		}
	}
	return transformer, plugin.TransformRequest{Source: job.Request.Source, Input: input}, nil
}

// Handshake resolves and handshakes without fetching or transforming
// anything. Used as a cheap validation step ahead of the full run.
func (o *Orchestrator) Handshake(ctx context.Context, job TransformJob) (plugin.HandshakeResult, error) {
	transformer, request, err := o.resolve(job)
	if err != nil {
		return plugin.HandshakeResult{}, err
	}
	handshake, err := transformer.Handshake(ctx, request)
	if err != nil {
		return plugin.HandshakeResult{}, fmt.Errorf("handshake failed: %w", err)
	}
	if err := validateDeclarations(handshake.Variants); err != nil {
		return plugin.HandshakeResult{}, err
	}
	return handshake, nil
}

func (o *Orchestrator) Run(ctx context.Context, job TransformJob) (*TransformOutcome, error) {
	outcome := &TransformOutcome{JobID: job.ID, State: plugin.StateUninitialized}

	transformer, request, err := o.resolve(job)
	if err != nil {
		return outcome, err
	}

	handshake, err := transformer.Handshake(ctx, request)
	if err != nil {
		return outcome, fmt.Errorf("handshake failed: %w", err)
	}
	if err := validateDeclarations(handshake.Variants); err != nil {
		return outcome, err
	}
	outcome.State = plugin.StateHandshaken
	o.logger.Info("Handshake complete",
		zap.String("job", job.ID),
		zap.String("plugin", job.PluginID),
		zap.Int("variants", len(handshake.Variants)))

	localPath, err := o.ingestor.Fetch(ctx, request.Source)
	if err != nil {
		return outcome, err
	}
	defer os.Remove(localPath)

	variants := make([]plugin.TransformVariant, len(handshake.Variants))
	outcome.Variants = make([]VariantOutcome, len(handshake.Variants))
	for i, decl := range handshake.Variants {
		variantID := uuid.NewString()
		variants[i] = plugin.TransformVariant{
			ID:                 variantID,
			VariantDeclaration: decl,
			Files:              storage.NewFileOps(o.provider, o.pathPrefix, job.UnitID, job.ContainerID, variantID),
		}
		outcome.Variants[i] = VariantOutcome{
			ID:         variantID,
			Name:       decl.Name,
			EntryPoint: decl.EntryPoint,
			MimeType:   decl.MimeType,
			Type:       decl.Type,
			Path:       storage.VariantPath(o.pathPrefix, job.UnitID, job.ContainerID, variantID, decl.EntryPoint),
		}
	}

	outcome.State = plugin.StateTransforming
	start := time.Now()
	result, err := transformer.Transform(ctx, plugin.TransformArgs{
		Source:    request.Source,
		Input:     request.Input,
		LocalPath: localPath,
		Variants:  variants,
	})
	if err != nil {
		return outcome, fmt.Errorf("transform failed: %w", err)
	}

	o.fold(outcome, result)
	o.logOutcome(job, outcome, time.Since(start))
	return outcome, nil
}

// fold maps per-variant results back onto the outcome by variant id and
// derives the final state. A variant the transformer never reported is
// treated as failed.
func (o *Orchestrator) fold(outcome *TransformOutcome, result plugin.TransformResult) {
	reported := make(map[string]plugin.VariantResult, len(result.Variants))
	for _, vr := range result.Variants {
		reported[vr.ID] = vr
	}

	failed := 0
	for i := range outcome.Variants {
		vr, ok := reported[outcome.Variants[i].ID]
		if !ok {
			outcome.Variants[i].Error = "variant not reported by transformer"
			failed++
			continue
		}
		if vr.Error != "" {
			outcome.Variants[i].Error = vr.Error
			failed++
		}
	}

	if failed > 0 {
		outcome.State = plugin.StatePartiallyFailed
	} else {
		outcome.State = plugin.StateCompleted
	}
}

func (o *Orchestrator) logOutcome(job TransformJob, outcome *TransformOutcome, elapsed time.Duration) {
	for _, v := range outcome.Variants {
		if v.Error != "" {
			o.logger.Error("Variant failed",
				zap.String("job", job.ID),
				zap.String("variant", v.ID),
				zap.String("entry_point", v.EntryPoint),
				zap.String("error", v.Error))
			continue
		}
		o.logger.Info("Variant stored",
			zap.String("job", job.ID),
			zap.String("variant", v.ID),
			zap.String("path", v.Path))
	}
	o.logger.Info("Transform finished",
		zap.String("job", job.ID),
		zap.String("state", string(outcome.State)),
		zap.Duration("duration", elapsed))
}

// validateDeclarations rejects handshakes with duplicate entry points; two
// variants writing the same relative path would silently overwrite each
// other in storage.
func validateDeclarations(variants []plugin.VariantDeclaration) error {
	if len(variants) == 0 {
		return fmt.Errorf("handshake declared no variants")
	}
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		if v.EntryPoint == "" {
			return fmt.Errorf("variant %q declares an empty entry point", v.Name)
		}
		if seen[v.EntryPoint] {
			return fmt.Errorf("duplicate entry point %q in handshake", v.EntryPoint)
		}
		seen[v.EntryPoint] = true
	}
	return nil
}
