// Package service holds the client for the remote learned-classification
// service. Only the request/response contract is owned here; the service
// itself is an external collaborator.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"framesight/internal/model"
)

// ErrUnavailable marks transport-level failures: the service could not
// be reached or answered with a server error after all retries. A
// reachable service returning a low confidence is not an error.
var ErrUnavailable = errors.New("ml service unavailable")

// RetryPolicy is the single bounded-retry configuration shared by every
// remote call: health check, classify, validate, and override submit.
type RetryPolicy struct {
	MaxAttempts       int
	RetryWait         time.Duration
	RetryMaxWait      time.Duration
	PerAttemptTimeout time.Duration
}

// DefaultRetryPolicy: 2 attempts, exponential backoff capped at 5s,
// 12s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       2,
		RetryWait:         time.Second,
		RetryMaxWait:      5 * time.Second,
		PerAttemptTimeout: 12 * time.Second,
	}
}

// MLClient talks to the remote classification service.
type MLClient struct {
	http   *resty.Client
	logger *zap.Logger
}

func NewMLClient(baseURL string, policy RetryPolicy, logger *zap.Logger) *MLClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(policy.PerAttemptTimeout).
		SetRetryCount(policy.MaxAttempts - 1).
		SetRetryWaitTime(policy.RetryWait).
		SetRetryMaxWaitTime(policy.RetryMaxWait).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &MLClient{http: client, logger: logger}
}

// HealthInfo is the /health payload.
type HealthInfo struct {
	Status       string `json:"status"`
	ModelsLoaded bool   `json:"models_loaded"`
	Version      string `json:"version"`
}

// Healthy reports whether the service can serve classifications.
func (h HealthInfo) Healthy() bool {
	return h.Status == "healthy" && h.ModelsLoaded
}

// Health gates every classification round trip.
func (c *MLClient) Health(ctx context.Context) (HealthInfo, error) {
	var info HealthInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/health")
	if err != nil {
		return info, fmt.Errorf("%w: health check: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return info, fmt.Errorf("%w: health check returned %d", ErrUnavailable, resp.StatusCode())
	}
	return info, nil
}

// ModelInfo describes the deployed classifier ensemble.
type ModelInfo struct {
	BuildingClassifierType string   `json:"building_classifier_type"`
	MemberClassifierType   string   `json:"member_classifier_type"`
	BuildingClasses        []string `json:"building_classes"`
	MemberClasses          []string `json:"member_classes"`
	EnsembleArchitecture   string   `json:"ensemble_architecture"`
	ModelVersion           string   `json:"model_version"`
	TrainingDate           string   `json:"training_date,omitempty"`
}

func (c *MLClient) ModelInfo(ctx context.Context) (ModelInfo, error) {
	var info ModelInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/model-info")
	if err != nil {
		return info, fmt.Errorf("%w: model-info: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return info, fmt.Errorf("%w: model-info returned %d", ErrUnavailable, resp.StatusCode())
	}
	return info, nil
}

type classifyBuildingRequest struct {
	Model *model.Model `json:"model"`
}

type alternativeWire struct {
	BuildingType string  `json:"buildingType"`
	Confidence   float64 `json:"confidence"`
}

type classifyBuildingResponse struct {
	BuildingType     string             `json:"buildingType"`
	Confidence       float64            `json:"confidence"`
	Reasoning        []string           `json:"reasoning"`
	AlternativeTypes []alternativeWire  `json:"alternativeTypes"`
	Features         map[string]float64 `json:"features,omitempty"`
}

// ClassifyBuilding asks the service for a building-type classification.
func (c *MLClient) ClassifyBuilding(ctx context.Context, m *model.Model) (model.ClassificationResult, error) {
	var out classifyBuildingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(classifyBuildingRequest{Model: m}).
		SetResult(&out).
		Post("/classify-building")
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("%w: classify-building: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return model.ClassificationResult{}, fmt.Errorf("%w: classify-building returned %d", ErrUnavailable, resp.StatusCode())
	}

	bt, err := model.ParseBuildingType(out.BuildingType)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("classify-building: %w", err)
	}

	result := model.ClassificationResult{
		SuggestedType: bt,
		Confidence:    out.Confidence,
		Reasoning:     out.Reasoning,
		Source:        model.SourceRemote,
		At:            time.Now(),
	}
	for _, alt := range out.AlternativeTypes {
		abt, err := model.ParseBuildingType(alt.BuildingType)
		if err != nil {
			c.logger.Warn("dropping unknown alternative type", zap.String("type", alt.BuildingType))
			continue
		}
		result.Alternatives = append(result.Alternatives, model.AlternativeType{
			Type:       abt,
			Confidence: alt.Confidence,
		})
	}
	return result, nil
}

type classifyMembersRequest struct {
	Model     *model.Model `json:"model"`
	MemberIDs []string     `json:"memberIds,omitempty"`
}

// MemberClassification is the per-member tag map returned by the
// service along with its confidences.
type MemberClassification struct {
	Tags        map[string]model.MemberTag
	Confidences map[string]float64
}

type classifyMembersResponse struct {
	MemberTags  map[string]string  `json:"memberTags"`
	Confidences map[string]float64 `json:"confidences"`
}

// ClassifyMembers asks the service to tag members; a nil memberIDs
// classifies all of them.
func (c *MLClient) ClassifyMembers(ctx context.Context, m *model.Model, memberIDs []string) (MemberClassification, error) {
	var out classifyMembersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(classifyMembersRequest{Model: m, MemberIDs: memberIDs}).
		SetResult(&out).
		Post("/classify-members")
	if err != nil {
		return MemberClassification{}, fmt.Errorf("%w: classify-members: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return MemberClassification{}, fmt.Errorf("%w: classify-members returned %d", ErrUnavailable, resp.StatusCode())
	}

	mc := MemberClassification{
		Tags:        make(map[string]model.MemberTag, len(out.MemberTags)),
		Confidences: out.Confidences,
	}
	for id, name := range out.MemberTags {
		tag, err := model.ParseMemberTag(name)
		if err != nil {
			c.logger.Warn("dropping unknown member tag",
				zap.String("member", id), zap.String("tag", name))
			continue
		}
		mc.Tags[id] = tag
	}
	return mc, nil
}

type manualOverrideRequest struct {
	PredictionID       string         `json:"predictionId"`
	CorrectionType     string         `json:"correctionType"`
	OriginalPrediction map[string]any `json:"originalPrediction"`
	UserCorrection     map[string]any `json:"userCorrection"`
	Reasoning          string         `json:"reasoning,omitempty"`
}

type manualOverrideResponse struct {
	Success    bool   `json:"success"`
	OverrideID string `json:"overrideId"`
}

// SubmitOverride forwards one user correction as learning signal.
func (c *MLClient) SubmitOverride(ctx context.Context, corr model.Correction) (string, error) {
	req := manualOverrideRequest{
		PredictionID:   corr.PredictionID,
		CorrectionType: string(corr.Kind),
		OriginalPrediction: map[string]any{
			"subjectId":  corr.SubjectID,
			"value":      corr.PreviousValue,
			"confidence": corr.PreviousConfidence,
		},
		UserCorrection: map[string]any{
			"subjectId": corr.SubjectID,
			"value":     corr.NewValue,
		},
		Reasoning: corr.Reasoning,
	}

	var out manualOverrideResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/manual-override")
	if err != nil {
		return "", fmt.Errorf("%w: manual-override: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: manual-override returned %d", ErrUnavailable, resp.StatusCode())
	}
	if !out.Success {
		return "", fmt.Errorf("manual-override rejected for prediction %s", corr.PredictionID)
	}
	return out.OverrideID, nil
}

type retrainRequest struct {
	IncludeOverrides bool `json:"includeOverrides"`
}

// SignalRetrain kicks off remote retraining with accumulated overrides.
// Callers treat this as fire-and-forget; failure is logged, not surfaced.
func (c *MLClient) SignalRetrain(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(retrainRequest{IncludeOverrides: true}).
		Post("/retrain")
	if err != nil {
		return fmt.Errorf("%w: retrain: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: retrain returned %d", ErrUnavailable, resp.StatusCode())
	}
	return nil
}

// RemoteValidation is the structural validation the service performs on
// a full model.
type RemoteValidation struct {
	IsValid    bool           `json:"isValid"`
	Errors     []string       `json:"errors"`
	Warnings   []string       `json:"warnings"`
	Statistics map[string]any `json:"statistics"`
}

// ValidateModel asks the service for its independent validation pass.
func (c *MLClient) ValidateModel(ctx context.Context, m *model.Model) (RemoteValidation, error) {
	var out RemoteValidation
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(classifyBuildingRequest{Model: m}).
		SetResult(&out).
		Post("/validate-model")
	if err != nil {
		return out, fmt.Errorf("%w: validate-model: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return out, fmt.Errorf("%w: validate-model returned %d", ErrUnavailable, resp.StatusCode())
	}
	return out, nil
}
