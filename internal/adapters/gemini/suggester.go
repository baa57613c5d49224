// Package gemini implements suggest.Suggester on Google's Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/suggest"
)

const defaultModel = "gemini-2.0-flash"

// generator is the slice of *genai.Models the suggester needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Suggester asks a Gemini model for coaching advice on one routine.
type Suggester struct {
	gen   generator
	model string
}

// New creates a Suggester backed by the Gemini API.
func New(ctx context.Context, apiKey, model string) (*Suggester, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newSuggester(client.Models, model), nil
}

func newSuggester(gen generator, model string) *Suggester {
	if model == "" {
		model = defaultModel
	}
	return &Suggester{gen: gen, model: model}
}

// reply is the JSON shape the prompt asks for.
type reply struct {
	OptimizedSkills []struct {
		Skill       string  `json:"skill"`
		Value       float64 `json:"value"`
		Deduction   float64 `json:"deduction"`
		Explanation string  `json:"explanation"`
	} `json:"optimizedSkills"`
}

// Suggest implements suggest.Suggester.
func (s *Suggester) Suggest(ctx context.Context, event model.Event, skills []suggest.Skill) ([]string, error) {
	prompt, err := buildPrompt(event, skills)
	if err != nil {
		return nil, err
	}
	resp, err := s.gen.GenerateContent(ctx, s.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	return parseReply(resp.Text())
}

func buildPrompt(event model.Event, skills []suggest.Skill) (string, error) {
	payload, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("marshal skills: %w", err)
	}
	var b strings.Builder
	b.WriteString("You are an expert gymnastics coach. Review this ")
	b.WriteString(event.String())
	b.WriteString(" routine. Each skill lists its difficulty value, the execution deduction ")
	b.WriteString("it received, and whether it is the dismount.\n\n")
	b.Write(payload)
	b.WriteString("\n\nSuggest how to raise the score by replacing or fixing the skills that ")
	b.WriteString("cost the most. Answer only with JSON of the form ")
	b.WriteString(`{"optimizedSkills":[{"skill":"","value":0,"deduction":0,"explanation":""}]}`)
	b.WriteString(" where deduction is the expected deduction after the change.")
	return b.String(), nil
}

func parseReply(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyReply
	}
	var r reply
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadReply, err)
	}
	out := make([]string, 0, len(r.OptimizedSkills))
	for _, o := range r.OptimizedSkills {
		if strings.TrimSpace(o.Skill) == "" {
			continue
		}
		line := o.Skill + " (value " + fmtNum(o.Value) + ", expected deduction " + fmtNum(o.Deduction) + ")"
		if o.Explanation != "" {
			line += ": " + o.Explanation
		}
		out = append(out, line)
	}
	return out, nil
}

func fmtNum(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
