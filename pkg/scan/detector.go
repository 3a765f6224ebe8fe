package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/nocap-app/nocap-backend/domain"
)

// Detector is the scoring oracle. The mock below is deterministic so results
// are reproducible per file URL; a real inference backend plugs in behind the
// same interface without touching the orchestrator.
type Detector interface {
	Detect(ctx context.Context, fileURL, fileType string) (*domain.AnalysisResult, error)
}

type knownModel struct {
	name           string
	baseConfidence float64
}

var knownModels = []knownModel{
	{"DALL-E", 75},
	{"Midjourney", 82},
	{"Stable Diffusion", 68},
	{"Adobe Firefly", 71},
	{"Unknown AI Model", 55},
}

type mockDetector struct{}

func NewMockDetector() Detector {
	return &mockDetector{}
}

func (d *mockDetector) Detect(ctx context.Context, fileURL, fileType string) (*domain.AnalysisResult, error) {
	hash := 0
	for _, c := range fileURL {
		hash += int(c)
	}

	confidenceScore := float64(30 + hash%65)
	isAiGenerated := confidenceScore > 50

	var detectedModels []domain.DetectedModel
	if isAiGenerated {
		model := knownModels[hash%len(knownModels)]
		variance := float64(hash%20 - 10)
		confidence := model.baseConfidence + variance
		if confidence > 95 {
			confidence = 95
		}
		if confidence < 50 {
			confidence = 50
		}
		detectedModels = append(detectedModels, domain.DetectedModel{
			Name:       model.name,
			Confidence: confidence,
		})
	}

	var artifacts []domain.Artifact
	if isAiGenerated && len(detectedModels) > 0 {
		names := make([]string, 0, len(detectedModels))
		for _, m := range detectedModels {
			names = append(names, m.Name)
		}
		artifacts = append(artifacts, domain.Artifact{
			Type:        "ai_model_detection",
			Description: fmt.Sprintf("Detected AI-generated content from: %s", strings.Join(names, ", ")),
			Severity:    "high",
			Models:      detectedModels,
		})
	}

	switch {
	case confidenceScore > 70:
		artifacts = append(artifacts, domain.Artifact{
			Type:        "high_confidence",
			Description: "Very high confidence of AI generation detected",
			Severity:    "high",
		})
	case confidenceScore > 50:
		artifacts = append(artifacts, domain.Artifact{
			Type:        "medium_confidence",
			Description: "Moderate indicators of AI generation detected",
			Severity:    "medium",
		})
	default:
		artifacts = append(artifacts, domain.Artifact{
			Type:        "low_confidence",
			Description: "Low probability of AI generation - likely authentic",
			Severity:    "low",
		})
	}

	return &domain.AnalysisResult{
		ConfidenceScore: confidenceScore,
		IsAiGenerated:   isAiGenerated,
		Artifacts:       artifacts,
		DetectedModels:  detectedModels,
	}, nil
}
