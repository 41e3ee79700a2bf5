package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/Chitius/aider/internal/chat"
	"github.com/Chitius/aider/internal/config"
	"github.com/Chitius/aider/internal/logging"

	"google.golang.org/genai"
)

// GeminiClient is the Gemini-backed model transport.
type GeminiClient struct {
	client     *genai.Client
	model      string
	limits     TokenLimits
	canPrefill bool
}

// NewGeminiClient creates a Gemini transport from the session config.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (Client, error) {
	if cfg.Model.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key required: set GEMINI_API_KEY or model.api_key")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.Model.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	logging.Debug("created Gemini client", "model", cfg.Model.Name)

	return &GeminiClient{
		client: gc,
		model:  cfg.Model.Name,
		limits: TokenLimits{
			MaxInput:  cfg.Model.MaxInputTokens,
			MaxOutput: cfg.Model.MaxOutputTokens,
		},
		canPrefill: cfg.Model.CanPrefill,
	}, nil
}

// CanPrefill reports whether the model accepts assistant-seeded continuation.
func (c *GeminiClient) CanPrefill() bool {
	return c.canPrefill
}

// Limits returns the configured token limits.
func (c *GeminiClient) Limits() TokenLimits {
	return c.limits
}

// Send delivers the messages and streams back fragments.
func (c *GeminiClient) Send(ctx context.Context, msgs []chat.Message) (*Stream, error) {
	genCfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.limits.MaxOutput),
	}

	var contents []*genai.Content
	var system []string
	for _, msg := range msgs {
		switch msg.Role {
		case chat.RoleSystem:
			// Gemini takes system text via the request config.
			system = append(system, msg.Content)
		case chat.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		genCfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	iter := c.client.Models.GenerateContentStream(streamCtx, c.model, contents, genCfg)

	fragments := make(chan Fragment, 16)
	go func() {
		defer close(fragments)
		for resp, err := range iter {
			if err != nil {
				fragments <- Fragment{Err: classifyError(err)}
				return
			}
			if len(resp.Candidates) == 0 {
				continue
			}
			frag := Fragment{}
			cand := resp.Candidates[0]
			if cand.Content != nil {
				for _, part := range cand.Content.Parts {
					if part == nil {
						continue
					}
					if part.Text != "" {
						frag.Text += part.Text
					}
					if part.FunctionCall != nil {
						frag.Call = mergeCallArgs(frag.Call, part.FunctionCall)
					}
				}
			}
			switch cand.FinishReason {
			case genai.FinishReasonMaxTokens:
				frag.FinishReason = FinishLength
			case genai.FinishReasonStop:
				frag.FinishReason = FinishStop
			}
			select {
			case fragments <- frag:
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return NewStream(fragments, cancel), nil
}

func mergeCallArgs(call map[string]string, fc *genai.FunctionCall) map[string]string {
	if call == nil {
		call = make(map[string]string)
	}
	call["name"] += fc.Name
	for k, v := range fc.Args {
		call[k] += fmt.Sprint(v)
	}
	return call
}
