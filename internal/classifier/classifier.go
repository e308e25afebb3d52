// Package classifier resolves a building type for a parsed model,
// preferring the remote learned service and exposing the geometric rule
// cascade as an explicitly requested legacy path.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"framesight/internal/geometry"
	"framesight/internal/learning"
	"framesight/internal/model"
	"framesight/internal/service"
)

// RemoteService is the slice of the ML client the classifier consumes.
type RemoteService interface {
	Health(ctx context.Context) (service.HealthInfo, error)
	ClassifyBuilding(ctx context.Context, m *model.Model) (model.ClassificationResult, error)
}

type Classifier struct {
	svc     RemoteService
	tracker *learning.Tracker
	log     *zap.Logger
}

// New wires the classifier to its remote service and the session's
// correction tracker. Both may be nil: a nil service confines the
// classifier to ClassifyLocal, a nil tracker disables override checks.
func New(svc RemoteService, tracker *learning.Tracker, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{svc: svc, tracker: tracker, log: log}
}

// Classify runs the full request sequence: manual override check, health
// gate, then the remote classification. Remote failure is surfaced as an
// error wrapping service.ErrUnavailable — there is no silent downgrade
// to the rule cascade; callers wanting that must invoke ClassifyLocal
// themselves.
func (c *Classifier) Classify(ctx context.Context, m *model.Model) (model.ClassificationResult, error) {
	if m.Geometry == nil {
		geometry.Attach(m)
	}

	if c.tracker != nil {
		if bt, ok := c.tracker.BuildingOverride(m.ID); ok {
			c.log.Info("manual override active, skipping classification",
				zap.String("model_id", m.ID),
				zap.String("building_type", bt.String()))
			return model.ClassificationResult{
				PredictionID:  uuid.NewString(),
				SuggestedType: bt,
				Confidence:    1.0,
				Reasoning:     []string{fmt.Sprintf("manual override set to %s for model %s", bt, m.ID)},
				Source:        model.SourceOverride,
				At:            time.Now(),
			}, nil
		}
	}

	if c.svc == nil {
		return model.ClassificationResult{}, fmt.Errorf("classify %s: %w: no service configured", m.ID, service.ErrUnavailable)
	}

	info, err := c.svc.Health(ctx)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("classify %s: %w", m.ID, err)
	}
	if !info.Healthy() {
		return model.ClassificationResult{}, fmt.Errorf("classify %s: %w: service status %q, models loaded %t",
			m.ID, service.ErrUnavailable, info.Status, info.ModelsLoaded)
	}

	result, err := c.svc.ClassifyBuilding(ctx, m)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("classify %s: %w", m.ID, err)
	}
	result.PredictionID = uuid.NewString()

	c.log.Info("remote classification",
		zap.String("model_id", m.ID),
		zap.String("building_type", result.SuggestedType.String()),
		zap.Float64("confidence", result.Confidence))
	return result, nil
}

// ClassifyLocal evaluates the geometric rule cascade. It never fails:
// when every predicate declines, a low-confidence generic default is
// returned so callers always get a usable classification.
func (c *Classifier) ClassifyLocal(m *model.Model) model.ClassificationResult {
	if m.Geometry == nil {
		geometry.Attach(m)
	}

	if c.tracker != nil {
		if bt, ok := c.tracker.BuildingOverride(m.ID); ok {
			return model.ClassificationResult{
				PredictionID:  uuid.NewString(),
				SuggestedType: bt,
				Confidence:    1.0,
				Reasoning:     []string{fmt.Sprintf("manual override set to %s for model %s", bt, m.ID)},
				Source:        model.SourceOverride,
				At:            time.Now(),
			}
		}
	}

	result := runCascade(m, *m.Geometry, c.log)
	result.PredictionID = uuid.NewString()
	result.Source = model.SourceRuleBased
	result.At = time.Now()

	c.log.Info("rule-based classification",
		zap.String("model_id", m.ID),
		zap.String("building_type", result.SuggestedType.String()),
		zap.Float64("confidence", result.Confidence))
	return result
}
