package advisory

import (
	"context"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/prompt"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/schema"
)

// CropAnalyticsRequest names a crop and the market it is sold in.
type CropAnalyticsRequest struct {
	City              string `json:"city" validate:"required,max=100"`
	State             string `json:"state" validate:"required,max=100"`
	CropName          string `json:"cropName" validate:"required,max=100"`
	DateRange         string `json:"dateRange,omitempty" validate:"max=100"`
	IncludeHistorical bool   `json:"includeHistorical,omitempty"`
}

type MarketSummary struct {
	CurrentPrice    float64 `json:"currentPrice"`
	PriceChange     float64 `json:"priceChange"`
	TradingVolume   float64 `json:"tradingVolume"`
	MarketSentiment string  `json:"marketSentiment"`
}

type DataPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Visualization struct {
	Type        string      `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Data        []DataPoint `json:"data"`
	Annotations []string    `json:"annotations"`
}

type MarketInsight struct {
	Category       string `json:"category"`
	Key            string `json:"key"`
	Description    string `json:"description"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

type MarketAnalysis struct {
	Summary        MarketSummary   `json:"summary"`
	Visualizations []Visualization `json:"visualizations"`
	Insights       []MarketInsight `json:"insights"`
}

type GradeDistribution struct {
	Premium     float64 `json:"premium"`
	Standard    float64 `json:"standard"`
	Substandard float64 `json:"substandard"`
}

type QualityParameter struct {
	Parameter string  `json:"parameter"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Benchmark float64 `json:"benchmark"`
}

type QualityMetrics struct {
	GradeDistribution GradeDistribution  `json:"gradeDistribution"`
	QualityParameters []QualityParameter `json:"qualityParameters"`
}

type PriceProjection struct {
	NextWeek   float64 `json:"nextWeek"`
	NextMonth  float64 `json:"nextMonth"`
	Confidence float64 `json:"confidence"`
}

type SupplyFactor struct {
	Factor string `json:"factor"`
	Impact string `json:"impact"`
}

type SupplyOutlook struct {
	Trend   string         `json:"trend"`
	Factors []SupplyFactor `json:"factors"`
}

type ForecastMetrics struct {
	PriceProjection PriceProjection `json:"priceProjection"`
	SupplyOutlook   SupplyOutlook   `json:"supplyOutlook"`
}

// CropAnalytics is the market, quality and forecast report for one crop.
type CropAnalytics struct {
	MarketAnalysis  MarketAnalysis  `json:"marketAnalysis"`
	QualityMetrics  QualityMetrics  `json:"qualityMetrics"`
	ForecastMetrics ForecastMetrics `json:"forecastMetrics"`
}

var cropAnalyticsSchema = schema.MustNew("crop_analytics",
	CropAnalytics{
		MarketAnalysis: MarketAnalysis{
			Summary:        MarketSummary{MarketSentiment: "N/A"},
			Visualizations: []Visualization{},
			Insights:       []MarketInsight{},
		},
		QualityMetrics: QualityMetrics{QualityParameters: []QualityParameter{}},
		ForecastMetrics: ForecastMetrics{
			SupplyOutlook: SupplyOutlook{Trend: "N/A", Factors: []SupplyFactor{}},
		},
	},
	schema.Object("marketAnalysis",
		schema.Object("summary",
			schema.Number("currentPrice").Eg(2400),
			schema.Number("priceChange").Eg(-1.5),
			schema.Number("tradingVolume").Range(0, 1e12),
			schema.String("marketSentiment").Eg("bullish"),
		),
		schema.Array("visualizations", schema.ObjectItem(
			schema.String("type").Eg("line"),
			schema.String("title"),
			schema.String("description"),
			schema.Array("data", schema.ObjectItem(schema.String("label"), schema.Number("value"))),
			schema.Array("annotations", schema.StringItem()),
		)),
		schema.Array("insights", schema.ObjectItem(
			schema.String("category"),
			schema.String("key"),
			schema.String("description"),
			schema.String("impact"),
			schema.String("recommendation"),
		)),
	),
	schema.Object("qualityMetrics",
		schema.Object("gradeDistribution",
			schema.Number("premium").Range(0, 100).Clamped(),
			schema.Number("standard").Range(0, 100).Clamped(),
			schema.Number("substandard").Range(0, 100).Clamped(),
		),
		schema.Array("qualityParameters", schema.ObjectItem(
			schema.String("parameter"),
			schema.Number("value"),
			schema.String("unit"),
			schema.Number("benchmark"),
		)),
	),
	schema.Object("forecastMetrics",
		schema.Object("priceProjection",
			schema.Number("nextWeek"),
			schema.Number("nextMonth"),
			schema.Number("confidence").Range(0, 100).Clamped(),
		),
		schema.Object("supplyOutlook",
			schema.String("trend").Eg("stable"),
			schema.Array("factors", schema.ObjectItem(schema.String("factor"), schema.String("impact"))),
		),
	),
)

const cropPersona = `You are an advanced AI-powered crop expert with deep expertise in agriculture, market trends, and predictive analytics.
Your responsibilities include analyzing crop prices, value, volume, quality metrics, supply trends, and historical data while providing precise, insightful, and highly accurate information.`

var cropResponsibilities = []string{
	"**Market Analysis:** Evaluate current and historical crop price data, trading volume shifts, and economic influences.",
	"**Quality Insights:** Provide a structured analysis of crop grading, including premium, standard, and substandard categories.",
	"**Forecasting:** Predict short-term and long-term price fluctuations using statistical confidence levels.",
	"**Supply Chain Intelligence:** Identify supply-demand gaps, distribution inefficiencies, and logistical challenges.",
	"**Geographic Trends:** Offer detailed insights based on state, city, and regional agricultural data.",
	"**Government Policies & Regulations:** Provide updates on subsidies, taxation, and market regulations affecting agriculture.",
	"**Seasonal Trends:** Analyze how different seasons impact production, quality, and pricing.",
}

func cropAnalyticsPrompt(req CropAnalyticsRequest) string {
	in := prompt.StructuredInput{
		Persona:          cropPersona,
		Responsibilities: cropResponsibilities,
		SubjectHeading:   "Analyze the following crop and location:",
		Subject: []prompt.KV{
			{Key: "City", Value: req.City},
			{Key: "State", Value: req.State},
			{Key: "Crop", Value: req.CropName},
			{Key: "Date Range", Value: req.DateRange},
		},
		ExampleJSON: cropAnalyticsSchema.Example(),
		Guidelines: []string{
			"Quote prices in Indian Rupees per quintal.",
			"Grade distribution, confidence and other percentages are on a 0-100 scale.",
		},
	}
	if req.IncludeHistorical {
		in.Notes = append(in.Notes, "Include historical data analysis")
	}
	return prompt.BuildStructured(in)
}

func structuredParameters(temperature float64, topK int, topP float64, maxTokens int) domain.ModelParameters {
	return domain.ModelParameters{
		Temperature:     domain.Float(temperature),
		TopK:            domain.Int(topK),
		TopP:            domain.Float(topP),
		MaxOutputTokens: domain.Int(maxTokens),
	}
}

// CropAnalytics returns a fully shaped market report for the crop in req.
func (s *Service) CropAnalytics(ctx context.Context, req CropAnalyticsRequest) (domain.ValidatedResult[CropAnalytics], error) {
	if err := s.validator.Validate(req); err != nil {
		return domain.ValidatedResult[CropAnalytics]{}, err
	}

	genReq := domain.NewGenerationRequest(cropAnalyticsPrompt(req),
		domain.WithParameters(structuredParameters(0.7, 40, 0.95, 2048)),
		domain.WithSafetySettings(domain.DefaultSafetySettings()),
	)
	return generation.Generate(ctx, s.client, genReq, cropAnalyticsSchema, generation.WithUseCase("crop_analytics"))
}
