package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

type fakeAdvisor struct {
	chatReq    advisory.ChatRequest
	cropReq    advisory.CropAnalyticsRequest
	diseaseReq advisory.DiseaseRequest
	farmingReq advisory.ModernFarmingRequest
	fragments  []string
}

func (f *fakeAdvisor) Chat(_ context.Context, req advisory.ChatRequest, onFragment func(string)) (string, error) {
	f.chatReq = req
	if onFragment != nil {
		for _, frag := range f.fragments {
			onFragment(frag)
		}
	}
	return "Sow in November.", nil
}

func (f *fakeAdvisor) CropAnalytics(_ context.Context, req advisory.CropAnalyticsRequest) (domain.ValidatedResult[advisory.CropAnalytics], error) {
	f.cropReq = req
	var v advisory.CropAnalytics
	v.MarketAnalysis.Summary.CurrentPrice = 2400
	return domain.ValidatedResult[advisory.CropAnalytics]{Value: v, Contributed: true}, nil
}

func (f *fakeAdvisor) DetectDisease(_ context.Context, req advisory.DiseaseRequest) (domain.ValidatedResult[advisory.DiseaseReport], error) {
	f.diseaseReq = req
	return domain.ValidatedResult[advisory.DiseaseReport]{Value: advisory.DiseaseReport{DiseaseName: "Early Blight"}}, nil
}

func (f *fakeAdvisor) ModernFarming(_ context.Context, req advisory.ModernFarmingRequest) (domain.ValidatedResult[advisory.ModernFarmingAnalysis], error) {
	f.farmingReq = req
	return domain.ValidatedResult[advisory.ModernFarmingAnalysis]{Degraded: true, DefaultedFields: []string{"metrics.successRate"}}, nil
}

func run(t *testing.T, args ...string) (*fakeAdvisor, string, string) {
	t.Helper()
	fake := &fakeAdvisor{fragments: []string{"Sow ", "in ", "November."}}
	advisor = fake
	t.Cleanup(func() { advisor = nil })

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return fake, stdout.String(), stderr.String()
}

func TestChatCommand(t *testing.T) {
	fake, out, _ := run(t, "chat", "--location", "Nashik", "--stream=false", "When", "to", "sow", "wheat?")

	assert.Equal(t, "When to sow wheat?", fake.chatReq.Query)
	assert.Equal(t, "Nashik", fake.chatReq.Location)
	assert.Equal(t, "Sow in November.\n", out)
}

func TestChatCommandStream(t *testing.T) {
	_, out, _ := run(t, "chat", "--stream", "When to sow wheat?")

	assert.Equal(t, "Sow in November.\n", out)
}

func TestCropCommand(t *testing.T) {
	fake, out, _ := run(t, "crop", "--city", "Pune", "--state", "Maharashtra", "--crop", "Rice", "--historical")

	assert.Equal(t, advisory.CropAnalyticsRequest{City: "Pune", State: "Maharashtra", CropName: "Rice", IncludeHistorical: true}, fake.cropReq)

	var got advisory.CropAnalytics
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2400.0, got.MarketAnalysis.Summary.CurrentPrice)
}

func TestDiseaseCommand(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	path := filepath.Join(t.TempDir(), "leaf.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	fake, out, _ := run(t, "disease", "--image", path, "--crop-type", "Tomato", "--severity", "mild")

	assert.Equal(t, png, fake.diseaseReq.Image)
	assert.Equal(t, "image/png", fake.diseaseReq.MIMEType)
	assert.Equal(t, "Tomato", fake.diseaseReq.CropType)
	assert.Equal(t, "mild", fake.diseaseReq.SeverityHint)
	assert.Contains(t, out, `"diseaseName": "Early Blight"`)
}

func TestFarmingCommandReportsDefaults(t *testing.T) {
	fake, _, errOut := run(t, "farming", "--technique", "Hydroponics", "--size", "2.5", "--budget", "high")

	assert.Equal(t, advisory.ModernFarmingRequest{Technique: "Hydroponics", FarmSize: 2.5, Budget: "high"}, fake.farmingReq)
	assert.Contains(t, errOut, "1 field(s) filled with defaults")
}

func TestFileMIMEType(t *testing.T) {
	tests := map[string]struct {
		path string
		data []byte
		want string
	}{
		"sniffed png":        {path: "leaf.bin", data: []byte("\x89PNG\r\n\x1a\n\x00"), want: "image/png"},
		"extension fallback": {path: "leaf.webp", data: []byte{0x00, 0x01}, want: "image/webp"},
		"unknown":            {path: "leaf", data: []byte{0x00, 0x01}, want: ""},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, fileMIMEType(tc.path, tc.data))
		})
	}
}
