package advisory

import (
	"context"
	"fmt"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/prompt"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/schema"
)

// MaxImageBytes bounds the inline image sent with a disease detection request.
const MaxImageBytes = 10 << 20

const defaultImageMIMEType = "image/jpeg"

// DiseaseRequest carries a plant photo and optional hints.
type DiseaseRequest struct {
	Image        []byte `json:"-"`
	MIMEType     string `json:"mimeType" validate:"required,image_mime"`
	CropType     string `json:"cropType,omitempty" validate:"max=100"`
	SeverityHint string `json:"severityLevel,omitempty" validate:"omitempty,oneof=mild medium severe"`
}

type EnvironmentalFactor struct {
	Factor       string `json:"factor"`
	CurrentValue string `json:"currentValue"`
	OptimalRange string `json:"optimalRange"`
	Status       string `json:"status"`
}

type SpreadRisk struct {
	Level string  `json:"level"`
	Value float64 `json:"value"`
	Trend string  `json:"trend"`
}

type DiseaseProgression struct {
	Stage         string  `json:"stage"`
	Rate          float64 `json:"rate"`
	NextCheckDate string  `json:"nextCheckDate"`
}

type EnvironmentalConditions struct {
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	SoilMoisture float64 `json:"soilMoisture"`
	LastUpdated  string  `json:"lastUpdated"`
}

type RealTimeMetrics struct {
	SpreadRisk              SpreadRisk              `json:"spreadRisk"`
	DiseaseProgression      DiseaseProgression      `json:"diseaseProgression"`
	EnvironmentalConditions EnvironmentalConditions `json:"environmentalConditions"`
}

// DiseaseReport is the diagnosis for one plant image.
type DiseaseReport struct {
	DiseaseName          string                `json:"diseaseName"`
	CropName             string                `json:"cropName"`
	TimeToTreat          string                `json:"timeToTreat"`
	EstimatedRecovery    string                `json:"estimatedRecovery"`
	YieldImpact          string                `json:"yieldImpact"`
	SeverityLevel        string                `json:"severityLevel"`
	SymptomDescription   string                `json:"symptomDescription"`
	EnvironmentalFactors []EnvironmentalFactor `json:"environmentalFactors"`
	RealTimeMetrics      RealTimeMetrics       `json:"realTimeMetrics"`
	OrganicTreatments    []string              `json:"organicTreatments"`
	IPMStrategies        []string              `json:"ipmStrategies"`
	PreventionPlan       []string              `json:"preventionPlan"`
	ConfidenceLevel      float64               `json:"confidenceLevel"`
	DiagnosisSummary     string                `json:"diagnosisSummary"`
	DetectedAt           time.Time             `json:"detectedAt"`
}

var diseaseReportSchema = schema.MustNew("disease_report",
	DiseaseReport{
		DiseaseName:          "N/A",
		CropName:             "N/A",
		TimeToTreat:          "N/A",
		EstimatedRecovery:    "N/A",
		YieldImpact:          "N/A",
		SeverityLevel:        "N/A",
		SymptomDescription:   "N/A",
		EnvironmentalFactors: []EnvironmentalFactor{},
		RealTimeMetrics: RealTimeMetrics{
			SpreadRisk:              SpreadRisk{Level: "N/A", Trend: "N/A"},
			DiseaseProgression:      DiseaseProgression{Stage: "N/A", NextCheckDate: "N/A"},
			EnvironmentalConditions: EnvironmentalConditions{LastUpdated: "N/A"},
		},
		OrganicTreatments: []string{},
		IPMStrategies:     []string{},
		PreventionPlan:    []string{},
		DiagnosisSummary:  "N/A",
	},
	schema.String("diseaseName"),
	schema.String("cropName"),
	schema.String("timeToTreat"),
	schema.String("estimatedRecovery"),
	schema.String("yieldImpact"),
	schema.String("severityLevel").OneOf("mild", "medium", "severe"),
	schema.String("symptomDescription"),
	schema.Array("environmentalFactors", schema.ObjectItem(
		schema.String("factor"),
		schema.String("currentValue"),
		schema.String("optimalRange"),
		schema.String("status").OneOf("optimal", "warning", "critical"),
	)),
	schema.Object("realTimeMetrics",
		schema.Object("spreadRisk",
			schema.String("level"),
			schema.Number("value"),
			schema.String("trend").OneOf("increasing", "stable", "decreasing"),
		),
		schema.Object("diseaseProgression",
			schema.String("stage"),
			schema.Number("rate"),
			schema.String("nextCheckDate"),
		),
		schema.Object("environmentalConditions",
			schema.Number("temperature"),
			schema.Number("humidity"),
			schema.Number("soilMoisture"),
			schema.String("lastUpdated"),
		),
	),
	schema.Array("organicTreatments", schema.StringItem()),
	schema.Array("ipmStrategies", schema.StringItem()),
	schema.Array("preventionPlan", schema.StringItem()),
	schema.Number("confidenceLevel").Range(0, 100),
	schema.String("diagnosisSummary"),
)

var diseaseNotApplicable = domain.NotApplicableSentinel("diseaseName", "Not Applicable", "Invalid Query")

const diseasePersona = "As an expert agricultural pathologist, analyze the provided plant image and return a response strictly in JSON format."

var supportedPlantTypes = []string{
	"Crops (cereals, pulses, oilseeds, etc.)",
	"Fruits (tropical, subtropical, temperate)",
	"Vegetables (root, leafy, fruit vegetables)",
	"Trees (fruit-bearing, timber, ornamental)",
	"Flowering plants, indoor/outdoor plants",
	"Commercial and home garden plants",
	"Hydroponic and aquaponic plants",
}

var diseaseSentinels = []prompt.Sentinel{
	{
		When: "**Non-plant or irrelevant images:**",
		JSON: `{
  "diseaseName": "Not Applicable",
  "cropName": "Invalid Input",
  "confidenceLevel": 0,
  "diagnosisSummary": "This appears to be a non-plant image. Please provide a clear image of a plant for analysis.",
  "timeToTreat": "N/A",
  "estimatedRecovery": "N/A",
  "yieldImpact": "N/A",
  "severityLevel": "N/A"
}`,
	},
	{
		When: "**Spam, inappropriate, or malicious queries:**",
		JSON: `{
  "diseaseName": "Invalid Query",
  "cropName": "Not Applicable",
  "confidenceLevel": 0,
  "diagnosisSummary": "Unable to process this query. Please provide appropriate plant-related images.",
  "timeToTreat": "N/A",
  "estimatedRecovery": "N/A",
  "yieldImpact": "N/A",
  "severityLevel": "N/A"
}`,
	},
}

var diseaseGuidelines = []string{
	"Identify any plant disease with high accuracy and give the correct crop name.",
	"Deliver a detailed environmental analysis and real-time disease metrics.",
	"Suggest organic and IPM-based treatments and outline clear prevention measures.",
	"Keep the confidence level between 80 and 100 for valid diagnoses.",
	"Use realistic environmental metrics with proper units (°C, %).",
}

func diseasePrompt(req DiseaseRequest) string {
	return prompt.BuildStructured(prompt.StructuredInput{
		Persona:                 diseasePersona,
		ResponsibilitiesHeading: "**Supported Plant Types:**",
		Responsibilities:        supportedPlantTypes,
		SubjectHeading:          "Context supplied by the farmer:",
		Subject: []prompt.KV{
			{Key: "Crop Type", Value: req.CropType},
			{Key: "Severity Level", Value: req.SeverityHint},
		},
		ExampleJSON: diseaseReportSchema.Example(),
		Sentinels:   diseaseSentinels,
		Guidelines:  diseaseGuidelines,
	})
}

// DetectDisease diagnoses the plant in req.Image. Non-plant or abusive images yield a
// result with NotApplicable set rather than an error.
func (s *Service) DetectDisease(ctx context.Context, req DiseaseRequest) (domain.ValidatedResult[DiseaseReport], error) {
	var zero domain.ValidatedResult[DiseaseReport]

	if req.MIMEType == "" {
		req.MIMEType = defaultImageMIMEType
	}
	if len(req.Image) == 0 {
		return zero, &domain.InputError{Field: "image", Message: "image is required"}
	}
	if len(req.Image) > MaxImageBytes {
		return zero, &domain.InputError{Field: "image", Message: fmt.Sprintf("image must be at most %d bytes", MaxImageBytes)}
	}
	if err := s.validator.Validate(req); err != nil {
		return zero, err
	}

	genReq := domain.NewGenerationRequest(diseasePrompt(req),
		domain.WithAttachment(req.Image, req.MIMEType),
		domain.WithParameters(structuredParameters(0.4, 32, 1, 1024)),
	)
	res, err := generation.Generate(ctx, s.client, genReq, diseaseReportSchema,
		generation.WithUseCase("disease_detection"),
		generation.WithSentinel(diseaseNotApplicable),
	)
	if err != nil {
		return zero, err
	}

	res.Value.DetectedAt = s.now().UTC()
	if res.NotApplicable {
		s.logger.InfoContext(ctx, "disease detection not applicable",
			"disease_name", res.Value.DiseaseName,
			"crop_name", res.Value.CropName)
	}
	return res, nil
}
