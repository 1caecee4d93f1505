package advisory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/mocks"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/prompt"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/retry"
)

var fixedNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *mocks.MockTransport) {
	t.Helper()
	ctrl := gomock.NewController(t)
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Provider().Return("fake").AnyTimes()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	policy := retry.DefaultPolicy().WithDelays(time.Millisecond, 2*time.Millisecond)
	client := generation.NewClient(transport, policy, logger)
	return NewService(client, logger, WithClock(func() time.Time { return fixedNow })), transport
}

func batch(text string) domain.RawModelOutput { return domain.BatchOutput{Text: text} }

func TestCropAnalytics_FencedPartialAnswer(t *testing.T) {
	svc, transport := newTestService(t)

	var sent *domain.GenerationRequest
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
			sent = req
			return batch("```json\n{\"marketAnalysis\": {\"summary\": {\"currentPrice\": 2400, \"marketSentiment\": \"bullish\"}}}\n```"), nil
		})

	res, err := svc.CropAnalytics(context.Background(), CropAnalyticsRequest{
		City:     "Pune",
		State:    "Maharashtra",
		CropName: "Rice",
	})

	require.NoError(t, err)
	assert.Equal(t, 2400.0, res.Value.MarketAnalysis.Summary.CurrentPrice)
	assert.Equal(t, 0.0, res.Value.MarketAnalysis.Summary.TradingVolume)
	assert.Equal(t, "bullish", res.Value.MarketAnalysis.Summary.MarketSentiment)
	assert.Equal(t, "N/A", res.Value.ForecastMetrics.SupplyOutlook.Trend)
	assert.NotNil(t, res.Value.MarketAnalysis.Insights)
	assert.True(t, res.Degraded)
	assert.Contains(t, res.DefaultedFields, "marketAnalysis.summary.tradingVolume")

	require.NotNil(t, sent)
	assert.Contains(t, sent.Prompt, "City: Pune")
	assert.Contains(t, sent.Prompt, "Crop: Rice")
	assert.Contains(t, sent.Prompt, `"currentPrice": 2400`)
	assert.NotContains(t, sent.Prompt, "Date Range")
	assert.Equal(t, 2048, *sent.Parameters.MaxOutputTokens)
	assert.Len(t, sent.SafetySettings, 4)
}

func TestCropAnalytics_ProseFallsBackToDefault(t *testing.T) {
	svc, transport := newTestService(t)
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(batch("Prices in Pune look stable this season."), nil).Times(3)

	res, err := svc.CropAnalytics(context.Background(), CropAnalyticsRequest{
		City:     "Pune",
		State:    "Maharashtra",
		CropName: "Rice",
	})

	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.True(t, res.Fallback)
	assert.Equal(t, cropAnalyticsSchema.Default(), res.Value)
	assert.Equal(t, "N/A", res.Value.MarketAnalysis.Summary.MarketSentiment)
}

func TestCropAnalytics_ClampsConfidence(t *testing.T) {
	svc, transport := newTestService(t)
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(batch(`{"forecastMetrics": {"priceProjection": {"nextWeek": 2450, "nextMonth": 2500, "confidence": 140}}}`), nil)

	res, err := svc.CropAnalytics(context.Background(), CropAnalyticsRequest{City: "Nashik", State: "Maharashtra", CropName: "Onion"})

	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Value.ForecastMetrics.PriceProjection.Confidence)
	assert.Equal(t, 2450.0, res.Value.ForecastMetrics.PriceProjection.NextWeek)
}

func TestDetectDisease(t *testing.T) {
	tests := map[string]struct {
		reply             string
		wantNotApplicable bool
		wantDisease       string
		wantSeverity      string
		wantConfidence    float64
	}{
		"diagnosis": {
			reply: `{"diseaseName": "Leaf Blast", "cropName": "Rice", "severityLevel": "Medium",
				"organicTreatments": ["Neem oil spray"], "confidenceLevel": 92,
				"realTimeMetrics": {"spreadRisk": {"level": "high", "value": 70, "trend": "increasing"}}}`,
			wantDisease:    "Leaf Blast",
			wantSeverity:   "medium",
			wantConfidence: 92,
		},
		"non plant image": {
			reply: `{"diseaseName": "Not Applicable", "cropName": "Invalid Input", "confidenceLevel": 0,
				"severityLevel": "N/A", "diagnosisSummary": "This appears to be a non-plant image."}`,
			wantNotApplicable: true,
			wantDisease:       "Not Applicable",
			wantSeverity:      "N/A",
		},
		"confidence out of range uses default": {
			reply:          `{"diseaseName": "Rust", "cropName": "Wheat", "severityLevel": "severe", "confidenceLevel": 180}`,
			wantDisease:    "Rust",
			wantSeverity:   "severe",
			wantConfidence: 0,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			svc, transport := newTestService(t)

			var sent *domain.GenerationRequest
			transport.EXPECT().Send(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
					sent = req
					return batch(tc.reply), nil
				})

			res, err := svc.DetectDisease(context.Background(), DiseaseRequest{
				Image:    []byte{0xff, 0xd8, 0xff},
				CropType: "Rice",
			})

			require.NoError(t, err)
			assert.Equal(t, tc.wantNotApplicable, res.NotApplicable)
			assert.Equal(t, tc.wantDisease, res.Value.DiseaseName)
			assert.Equal(t, tc.wantSeverity, res.Value.SeverityLevel)
			assert.Equal(t, tc.wantConfidence, res.Value.ConfidenceLevel)
			assert.Equal(t, fixedNow, res.Value.DetectedAt)
			assert.NotNil(t, res.Value.PreventionPlan)

			require.NotNil(t, sent)
			require.NotNil(t, sent.Attachment)
			assert.Equal(t, "image/jpeg", sent.Attachment.MIMEType)
			assert.Equal(t, 0.4, *sent.Parameters.Temperature)
			assert.Contains(t, sent.Prompt, "Crop Type: Rice")
			assert.Contains(t, sent.Prompt, `"diseaseName": "Invalid Query"`)
		})
	}
}

func TestModernFarming(t *testing.T) {
	svc, transport := newTestService(t)
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		Return(batch(`Here is the report:
{"techniqueAnalysis": {"overview": {"name": "Drip Irrigation", "estimatedCost": 85000, "roi": 22, "successRate": 110, "timeToRoi": "2 seasons", "sustainabilityScore": 80}},
 "implementation": {"phases": [{"name": "Survey", "duration": "2 weeks", "keyMilestones": ["Soil test"]}]},
 "metrics": {"resourceEfficiency": {"water": 90, "labor": 60, "energy": 55, "yield": 70, "sustainability": 85},
             "environmentalImpact": {"carbonFootprint": 30, "waterConservation": 88, "soilHealth": 75}}}`), nil)

	res, err := svc.ModernFarming(context.Background(), ModernFarmingRequest{Technique: "Drip Irrigation", FarmSize: 2.5, Budget: "medium"})

	require.NoError(t, err)
	assert.False(t, res.Degraded)
	assert.Equal(t, "Drip Irrigation", res.Value.TechniqueAnalysis.Overview.Name)
	assert.Equal(t, 100.0, res.Value.TechniqueAnalysis.Overview.SuccessRate)
	require.Len(t, res.Value.Implementation.Phases, 1)
	assert.Equal(t, []string{"Soil test"}, res.Value.Implementation.Phases[0].KeyMilestones)
	assert.Equal(t, "", res.Value.Implementation.Phases[0].Description)
	assert.Equal(t, 88.0, res.Value.Metrics.EnvironmentalImpact.WaterConservation)
}

func TestService_RejectsInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := map[string]struct {
		call      func() error
		wantField string
	}{
		"empty chat query": {
			call: func() error {
				_, err := svc.Chat(ctx, ChatRequest{Query: "   "}, nil)
				return err
			},
			wantField: "query",
		},
		"unknown chat role": {
			call: func() error {
				_, err := svc.Chat(ctx, ChatRequest{Query: "hi", PreviousMessages: []ChatTurn{{Role: "system", Content: "x"}}}, nil)
				return err
			},
			wantField: "role",
		},
		"crop without city": {
			call: func() error {
				_, err := svc.CropAnalytics(ctx, CropAnalyticsRequest{State: "Punjab", CropName: "Wheat"})
				return err
			},
			wantField: "city",
		},
		"disease without image": {
			call: func() error {
				_, err := svc.DetectDisease(ctx, DiseaseRequest{})
				return err
			},
			wantField: "image",
		},
		"disease with pdf": {
			call: func() error {
				_, err := svc.DetectDisease(ctx, DiseaseRequest{Image: []byte("%PDF"), MIMEType: "application/pdf"})
				return err
			},
			wantField: "mimeType",
		},
		"disease with unknown severity": {
			call: func() error {
				_, err := svc.DetectDisease(ctx, DiseaseRequest{Image: []byte{1}, SeverityHint: "extreme"})
				return err
			},
			wantField: "severityLevel",
		},
		"farming budget outside enum": {
			call: func() error {
				_, err := svc.ModernFarming(ctx, ModernFarmingRequest{Technique: "Hydroponics", FarmSize: 1, Budget: "unlimited"})
				return err
			},
			wantField: "budget",
		},
		"farming without size": {
			call: func() error {
				_, err := svc.ModernFarming(ctx, ModernFarmingRequest{Technique: "Hydroponics", Budget: "low"})
				return err
			},
			wantField: "farmSize",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := tc.call()

			var inErr *domain.InputError
			require.True(t, errors.As(err, &inErr), "got %v", err)
			assert.Equal(t, tc.wantField, inErr.Field)
		})
	}
}

func TestChat_Batch(t *testing.T) {
	svc, transport := newTestService(t)

	var sent *domain.GenerationRequest
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
			sent = req
			return batch("Urea costs about $6 per bag."), nil
		})

	text, err := svc.Chat(context.Background(), ChatRequest{
		Query:    "  What does urea cost?  ",
		Location: "Ludhiana, Punjab",
		PreviousMessages: []ChatTurn{
			{Role: "user", Content: "I grow wheat"},
			{Role: "assistant", Content: "Great choice for Punjab."},
		},
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "Urea costs about ₹6 per bag.", text)

	require.NotNil(t, sent)
	assert.Equal(t, "What does urea cost?", sent.Prompt)
	assert.Equal(t, domain.ModeBatch, sent.Mode)
	assert.Contains(t, sent.SystemInstruction, "Ludhiana, Punjab")
	assert.Contains(t, sent.SystemInstruction, "- user: I grow wheat")
	assert.Equal(t, []string{"Human:", "Assistant:"}, sent.Parameters.StopSequences)
}

func TestChat_LegacyJoinedQuery(t *testing.T) {
	svc, transport := newTestService(t)

	var sent *domain.GenerationRequest
	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
			sent = req
			return batch("Sow in early November."), nil
		})

	joined := prompt.Messages{System: "You are a wheat advisor.", User: "When should I sow wheat?"}.Joined()
	_, err := svc.Chat(context.Background(), ChatRequest{Query: joined}, nil)

	require.NoError(t, err)
	require.NotNil(t, sent)
	assert.Equal(t, "You are a wheat advisor.", sent.SystemInstruction)
	assert.Equal(t, "When should I sow wheat?", sent.Prompt)
}

func TestChat_Streaming(t *testing.T) {
	svc, transport := newTestService(t)

	transport.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
			assert.Equal(t, domain.ModeStreaming, req.Mode)
			ch := make(chan domain.StreamFragment)
			errs := make(chan error, 1)
			go func() {
				defer close(ch)
				for _, f := range []string{"Irrigate ", "every ", "5 days."} {
					ch <- domain.StreamFragment{Text: f}
				}
				ch <- domain.StreamFragment{Done: true}
			}()
			return domain.StreamOutput{Fragments: ch, Errs: errs}, nil
		})

	var got []string
	text, err := svc.Chat(context.Background(), ChatRequest{Query: "How often should I irrigate?"}, func(f string) {
		got = append(got, f)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Irrigate ", "every ", "5 days."}, got)
	assert.Equal(t, "Irrigate every 5 days.", strings.TrimSpace(text))
}
