package advisory

import (
	"context"
	"strings"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/postprocess"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/prompt"
)

// ChatTurn is one earlier message in the conversation.
type ChatTurn struct {
	Role    string `json:"role" validate:"omitempty,oneof=user assistant"`
	Content string `json:"content" validate:"max=4000"`
}

// ChatRequest is a farmer's free-text question.
type ChatRequest struct {
	Query            string     `json:"query" validate:"required,max=4000"`
	Language         string     `json:"language,omitempty" validate:"max=35"`
	Location         string     `json:"location,omitempty" validate:"max=200"`
	Locale           string     `json:"locale,omitempty" validate:"max=35"`
	PreviousMessages []ChatTurn `json:"previousMessages,omitempty" validate:"max=50,dive"`
}

func chatParameters() domain.ModelParameters {
	return domain.ModelParameters{
		Temperature:     domain.Float(0.7),
		TopP:            domain.Float(0.9),
		MaxOutputTokens: domain.Int(1024),
		StopSequences:   []string{"Human:", "Assistant:"},
	}
}

// Chat answers req. With a nil onFragment the answer is generated in one batch call;
// otherwise fragments are streamed to onFragment as they arrive. The returned text is
// post-processed for the request locale in both modes.
func (s *Service) Chat(ctx context.Context, req ChatRequest, onFragment func(string)) (string, error) {
	req.Query = strings.TrimSpace(req.Query)
	if err := s.validator.Validate(req); err != nil {
		return "", err
	}

	msgs := chatMessages(req)
	if msgs.User == "" {
		return "", &domain.InputError{Field: "query", Message: "query is required"}
	}

	genReq := domain.NewGenerationRequest(msgs.User,
		domain.WithSystemInstruction(msgs.System),
		domain.WithParameters(chatParameters()),
	)

	locale := req.Locale
	if locale == "" {
		locale = s.defaultLocale
	}
	rules := postprocess.RulesFor(locale)

	if onFragment == nil {
		return s.client.Text(ctx, genReq, rules)
	}
	return s.client.Stream(ctx, genReq.WithStreaming(), onFragment, rules)
}

// chatMessages builds the persona prompt. Older clients send the whole joined
// prompt as the query; those are split on the user query marker instead.
func chatMessages(req ChatRequest) prompt.Messages {
	if strings.Contains(req.Query, prompt.UserQueryMarker) {
		return prompt.SplitOnUserQuery(req.Query)
	}

	history := make([]prompt.Turn, 0, len(req.PreviousMessages))
	for _, m := range req.PreviousMessages {
		history = append(history, prompt.Turn{Role: m.Role, Content: m.Content})
	}
	return prompt.BuildChat(prompt.ChatInput{
		Query:    req.Query,
		Language: req.Language,
		Location: req.Location,
		History:  history,
	})
}
