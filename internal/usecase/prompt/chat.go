package prompt

import (
	"strings"
)

// UserQueryMarker separates the system part of a joined chat prompt from the user's query.
const UserQueryMarker = "USER QUERY:"

// maxHistoryTurns bounds how many previous messages are replayed to the model.
const maxHistoryTurns = 6

// Turn is one previous chat message.
type Turn struct {
	Role    string
	Content string
}

// ChatInput is a farmer's free-text question plus optional context.
type ChatInput struct {
	Query    string
	Language string
	Location string
	History  []Turn
}

// Messages is a system prompt and a user message.
type Messages struct {
	System string
	User   string
}

// Joined renders both parts as one prompt for providers without a system role.
func (m Messages) Joined() string {
	return m.System + "\n\n" + UserQueryMarker + "\n" + m.User
}

// SplitOnUserQuery is the inverse of Joined. Text without the marker is all user text.
func SplitOnUserQuery(s string) Messages {
	system, user, ok := strings.Cut(s, UserQueryMarker)
	if !ok {
		return Messages{User: strings.TrimSpace(s)}
	}
	return Messages{System: strings.TrimSpace(system), User: strings.TrimSpace(user)}
}

const chatPersona = `You are Kisan-AI Chatbot, a friendly yet expert assistant for farmers. Format responses using Markdown and use relative URLs for internal links.

**Core Features:**

* **Disease Detection**
  * Upload images at [Disease Detection](/disease-detection)
  * Get instant diagnosis
  * Treatment recommendations

* **Crop Advisory**
  * Visit [Crop Advisory](/crop-advisory) for:
  * Fertilizer schedules
  * Irrigation planning

* **Market Insights**
  * Check [Market Insights](/market-insights) for:
  * Real-time prices
  * Demand trends

* **Weather & Yield**
  * Access [Weather Predictions](/prediction) for:
  * Local forecasts
  * Yield estimates

**Response Guidelines:**
1. Use proper Markdown formatting
2. Use relative URLs for internal links (e.g., /disease-detection)
3. Structure responses with clear sections
4. Include relevant emojis for better engagement
5. Keep responses concise and actionable`

// BuildChat renders the Kisan-AI persona with the caller's context as the system
// message and the trimmed query as the user message.
func BuildChat(in ChatInput) Messages {
	var sb strings.Builder
	sb.WriteString(chatPersona)

	if lang := strings.TrimSpace(in.Language); lang != "" {
		sb.WriteString("\n\nRespond in the user's language: ")
		sb.WriteString(lang)
	}
	if loc := strings.TrimSpace(in.Location); loc != "" {
		sb.WriteString("\nThe user is farming in: ")
		sb.WriteString(loc)
	}

	history := in.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	if len(history) > 0 {
		sb.WriteString("\n\n**Conversation so far:**\n")
		for _, turn := range history {
			role := strings.ToLower(strings.TrimSpace(turn.Role))
			if role == "" {
				role = "user"
			}
			sb.WriteString("- ")
			sb.WriteString(role)
			sb.WriteString(": ")
			sb.WriteString(strings.Join(strings.Fields(turn.Content), " "))
			sb.WriteByte('\n')
		}
	}

	return Messages{
		System: strings.TrimSpace(sb.String()),
		User:   strings.TrimSpace(in.Query),
	}
}
