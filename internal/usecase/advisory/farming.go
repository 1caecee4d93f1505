package advisory

import (
	"context"
	"strconv"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/prompt"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/schema"
)

// ModernFarmingRequest describes the technique a farmer wants to adopt.
type ModernFarmingRequest struct {
	Technique string  `json:"technique" validate:"required,max=200"`
	FarmSize  float64 `json:"farmSize" validate:"gt=0"`
	Budget    string  `json:"budget" validate:"required,oneof=low medium high"`
}

type TechniqueOverview struct {
	Name                string  `json:"name"`
	EstimatedCost       float64 `json:"estimatedCost"`
	ROI                 float64 `json:"roi"`
	SuccessRate         float64 `json:"successRate"`
	TimeToROI           string  `json:"timeToRoi"`
	SustainabilityScore float64 `json:"sustainabilityScore"`
}

type TechniqueAnalysis struct {
	Overview TechniqueOverview `json:"overview"`
}

type ImplementationPhase struct {
	Name          string   `json:"name"`
	Duration      string   `json:"duration"`
	Description   string   `json:"description"`
	KeyMilestones []string `json:"keyMilestones"`
	EstimatedCost float64  `json:"estimatedCost"`
}

type Implementation struct {
	Phases []ImplementationPhase `json:"phases"`
}

type ResourceEfficiency struct {
	Water          float64 `json:"water"`
	Labor          float64 `json:"labor"`
	Energy         float64 `json:"energy"`
	Yield          float64 `json:"yield"`
	Sustainability float64 `json:"sustainability"`
}

type EnvironmentalImpact struct {
	CarbonFootprint   float64 `json:"carbonFootprint"`
	WaterConservation float64 `json:"waterConservation"`
	SoilHealth        float64 `json:"soilHealth"`
}

type FarmingMetrics struct {
	ResourceEfficiency  ResourceEfficiency  `json:"resourceEfficiency"`
	EnvironmentalImpact EnvironmentalImpact `json:"environmentalImpact"`
}

// ModernFarmingAnalysis is the cost, rollout and impact report for a technique.
type ModernFarmingAnalysis struct {
	TechniqueAnalysis TechniqueAnalysis `json:"techniqueAnalysis"`
	Implementation    Implementation    `json:"implementation"`
	Metrics           FarmingMetrics    `json:"metrics"`
}

func score(name string) schema.Field {
	return schema.Number(name).Range(0, 100).Clamped()
}

var modernFarmingSchema = schema.MustNew("modern_farming",
	ModernFarmingAnalysis{
		TechniqueAnalysis: TechniqueAnalysis{Overview: TechniqueOverview{Name: "N/A", TimeToROI: "N/A"}},
		Implementation:    Implementation{Phases: []ImplementationPhase{}},
	},
	schema.Object("techniqueAnalysis",
		schema.Object("overview",
			schema.String("name"),
			schema.Number("estimatedCost"),
			schema.Number("roi").Eg(18),
			score("successRate"),
			schema.String("timeToRoi").Eg("18 months"),
			score("sustainabilityScore"),
		),
	),
	schema.Object("implementation",
		schema.Array("phases", schema.ObjectItem(
			schema.String("name"),
			schema.String("duration"),
			schema.String("description"),
			schema.Array("keyMilestones", schema.StringItem()),
			schema.Number("estimatedCost"),
		)),
	),
	schema.Object("metrics",
		schema.Object("resourceEfficiency",
			score("water"),
			score("labor"),
			score("energy"),
			score("yield"),
			score("sustainability"),
		),
		schema.Object("environmentalImpact",
			score("carbonFootprint"),
			score("waterConservation"),
			score("soilHealth"),
		),
	),
)

var modernFarmingGuidelines = []string{
	"Ensure realistic cost estimates based on budget range",
	"ROI should be between 10-30%",
	"Include 5 detailed and super relevant implementation phases",
	"All numeric metrics should be on a scale of 0-100",
	"Consider local agricultural conditions and seasonal variations",
	"Provide practical and actionable implementation steps",
	"Focus on sustainable practices and environmental impact",
	"Include specific timeframes for ROI and implementation phases",
	"Consider technology integration and modern farming practices",
	"Account for resource optimization and efficiency metrics",
}

func modernFarmingPrompt(req ModernFarmingRequest) string {
	return prompt.BuildStructured(prompt.StructuredInput{
		Persona:        "You are an AI agricultural technology expert. Generate a comprehensive modern farming analysis report in JSON format.",
		SubjectHeading: "Analyze the following plan:",
		Subject: []prompt.KV{
			{Key: "Technique", Value: req.Technique},
			{Key: "Farm Size", Value: strconv.FormatFloat(req.FarmSize, 'f', -1, 64) + " acres"},
			{Key: "Budget Range", Value: req.Budget},
		},
		ExampleJSON: modernFarmingSchema.Example(),
		Guidelines:  modernFarmingGuidelines,
	})
}

// ModernFarming analyzes how a farm of the given size and budget could adopt a technique.
func (s *Service) ModernFarming(ctx context.Context, req ModernFarmingRequest) (domain.ValidatedResult[ModernFarmingAnalysis], error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.ValidatedResult[ModernFarmingAnalysis]{}, err
	}

	genReq := domain.NewGenerationRequest(modernFarmingPrompt(req),
		domain.WithParameters(structuredParameters(0.7, 40, 0.95, 2048)),
		domain.WithSafetySettings(domain.DefaultSafetySettings()),
	)
	return generation.Generate(ctx, s.client, genReq, modernFarmingSchema, generation.WithUseCase("modern_farming"))
}
