// Package chat streams replies from a Gemini model to the site's chat widget.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"

	"google.golang.org/genai"
)

// Message is one turn as sent by the chat widget. Content is normally a JSON
// string; any other JSON value is passed to the model as its JSON text.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// Text returns the message content as plain text.
func (m Message) Text() string {
	var s string
	if err := json.Unmarshal(m.Content, &s); err == nil {
		return s
	}
	return string(m.Content)
}

// Model streams text chunks for a conversation.
type Model interface {
	Stream(ctx context.Context, history []*genai.Content, message string) iter.Seq2[string, error]
}

// GeminiModel is a Model backed by the Gemini API.
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates the API client.
func NewGeminiModel(ctx context.Context, apiKey, model string) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiModel{client: client, model: model}, nil
}

func (g *GeminiModel) Stream(ctx context.Context, history []*genai.Content, message string) iter.Seq2[string, error] {
	contents := append(append([]*genai.Content{}, history...), genai.NewContentFromText(message, genai.RoleUser))
	return func(yield func(string, error) bool) {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, nil) {
			if err != nil {
				yield("", err)
				return
			}
			if !yield(resp.Text(), nil) {
				return
			}
		}
	}
}

// conversation converts widget messages into model history and the message to
// send. Role "user" stays user and every other role becomes model; a leading
// system message is dropped.
func conversation(messages []Message) ([]*genai.Content, string, bool) {
	if len(messages) > 0 && messages[0].Role == "system" {
		messages = messages[1:]
	}
	if len(messages) == 0 {
		return nil, "", false
	}
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, m := range messages[:len(messages)-1] {
		role := genai.Role(genai.RoleModel)
		if m.Role == "user" {
			role = genai.RoleUser
		}
		history = append(history, genai.NewContentFromText(m.Text(), role))
	}
	return history, messages[len(messages)-1].Text(), true
}
