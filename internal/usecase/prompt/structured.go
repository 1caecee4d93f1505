// Package prompt renders deterministic prompt text for the advisory use cases.
// Builders never perform I/O and never fail.
package prompt

import (
	"strconv"
	"strings"
)

// KV is one labelled line of the subject block, e.g. "City: Pune".
type KV struct {
	Key   string
	Value string
}

// Sentinel documents a fixed reply the model must give for unusable input.
type Sentinel struct {
	When string
	JSON string
}

// StructuredInput describes a prompt whose answer must be a JSON object.
type StructuredInput struct {
	Persona string
	// ResponsibilitiesHeading defaults to "## Key Responsibilities:".
	ResponsibilitiesHeading string
	Responsibilities        []string
	SubjectHeading          string
	Subject                 []KV
	Notes                   []string
	// ExampleJSON must come from the result schema so the prompt and validator agree.
	ExampleJSON string
	Sentinels   []Sentinel
	Guidelines  []string
}

// BuildStructured renders the persona, responsibilities, subject, output contract,
// sentinel rules and guidelines, in that order. Empty sections are omitted.
func BuildStructured(in StructuredInput) string {
	var sb strings.Builder

	if in.Persona != "" {
		sb.WriteString(strings.TrimSpace(in.Persona))
		sb.WriteString("\n\n")
	}

	if len(in.Responsibilities) > 0 {
		heading := in.ResponsibilitiesHeading
		if heading == "" {
			heading = "## Key Responsibilities:"
		}
		sb.WriteString(heading)
		sb.WriteByte('\n')
		writeNumbered(&sb, in.Responsibilities)
		sb.WriteString("\n")
	}

	subject := nonEmpty(in.Subject)
	if len(subject) > 0 || len(in.Notes) > 0 {
		heading := in.SubjectHeading
		if heading == "" {
			heading = "Analyze the following:"
		}
		sb.WriteString(heading)
		sb.WriteByte('\n')
		for _, kv := range subject {
			sb.WriteString(kv.Key)
			sb.WriteString(": ")
			sb.WriteString(kv.Value)
			sb.WriteByte('\n')
		}
		for _, note := range in.Notes {
			if note = strings.TrimSpace(note); note != "" {
				sb.WriteString(note)
				sb.WriteByte('\n')
			}
		}
		sb.WriteString("\n")
	}

	if in.ExampleJSON != "" {
		sb.WriteString("Return your analysis as a JSON object with this exact structure:\n")
		sb.WriteString(in.ExampleJSON)
		sb.WriteString("\n\n")
	}

	if len(in.Sentinels) > 0 {
		sb.WriteString("**Validation Rules:**\n")
		for i, s := range in.Sentinels {
			sb.WriteString(strconv.Itoa(i + 1))
			sb.WriteString(". ")
			sb.WriteString(s.When)
			sb.WriteString(" Return:\n")
			sb.WriteString(s.JSON)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	guidelines := append([]string{}, in.Guidelines...)
	guidelines = append(guidelines,
		"Respond with pure JSON only, without markdown fences or explanatory text.",
		"Use double quotes for all strings and no trailing commas.",
	)
	sb.WriteString("Guidelines:\n")
	writeNumbered(&sb, guidelines)

	return strings.TrimSpace(sb.String())
}

func writeNumbered(sb *strings.Builder, lines []string) {
	for i, line := range lines {
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
}

func nonEmpty(kvs []KV) []KV {
	out := make([]KV, 0, len(kvs))
	for _, kv := range kvs {
		if strings.TrimSpace(kv.Value) != "" {
			out = append(out, KV{Key: kv.Key, Value: strings.TrimSpace(kv.Value)})
		}
	}
	return out
}
