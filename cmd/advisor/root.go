package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ayuxy027/Krishak-AI/internal/di"
	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/infra/config"
	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

// Advisor is the advisory service surface the commands call.
type Advisor interface {
	Chat(ctx context.Context, req advisory.ChatRequest, onFragment func(string)) (string, error)
	CropAnalytics(ctx context.Context, req advisory.CropAnalyticsRequest) (domain.ValidatedResult[advisory.CropAnalytics], error)
	DetectDisease(ctx context.Context, req advisory.DiseaseRequest) (domain.ValidatedResult[advisory.DiseaseReport], error)
	ModernFarming(ctx context.Context, req advisory.ModernFarmingRequest) (domain.ValidatedResult[advisory.ModernFarmingAnalysis], error)
}

var _ Advisor = (*advisory.Service)(nil)

var (
	verbose  bool
	provider string
	advisor  Advisor
)

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Farming advisory from the command line",
	Long: `advisor runs the Krishak advisory use cases against the configured LLM provider.

Configuration comes from the environment (and .env), the same as the server.

Example usage:
  advisor chat "When should I sow wheat in Punjab?"
  advisor chat --stream "Best fertiliser for paddy?"
  advisor crop --city Pune --state Maharashtra --crop Rice
  advisor disease --image leaf.jpg --crop-type Tomato
  advisor farming --technique Hydroponics --size 2 --budget medium`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if advisor != nil {
			return nil
		}
		a, err := buildAdvisor(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		advisor = a
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "override LLM_PROVIDER (gemini, openai, genai)")
}

func buildAdvisor(ctx context.Context, logOut io.Writer) (Advisor, error) {
	if provider != "" {
		if err := os.Setenv("LLM_PROVIDER", provider); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	log := logger.NewWriter(logOut, level)

	components, err := di.NewApplicationComponents(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return components.Advisory, nil
}

// printResult writes a structured result as indented JSON on stdout and quality notes on stderr.
func printResult[T any](cmd *cobra.Command, res domain.ValidatedResult[T]) error {
	warn := color.New(color.FgYellow)
	switch {
	case res.Fallback:
		warn.Fprintln(cmd.ErrOrStderr(), "⚠ the model did not return usable data, showing defaults")
	case res.NotApplicable:
		warn.Fprintln(cmd.ErrOrStderr(), "⚠ the input was not recognised as a farming query")
	case res.Degraded:
		warn.Fprintf(cmd.ErrOrStderr(), "⚠ %d field(s) filled with defaults\n", len(res.DefaultedFields))
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Value)
}
