package genai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// Rewrite is a grounded rewrite of a prompt with the sources it cited.
type Rewrite struct {
	Text    string
	Sources []domain.GroundingSource
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type groundingChunk struct {
	Web *struct {
		URI   string `json:"uri"`
		Title string `json:"title"`
	} `json:"web,omitempty"`
}

type candidate struct {
	Content           content `json:"content"`
	GroundingMetadata *struct {
		GroundingChunks []groundingChunk `json:"groundingChunks"`
	} `json:"groundingMetadata,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

// GroundingInstruction wraps a prompt in the fact checking request.
func GroundingInstruction(prompt string) string {
	return fmt.Sprintf("Analyze and enhance this cinematic prompt for historical/scientific accuracy: \"%s\". Return the updated prompt only.", prompt)
}

// GroundedRewrite asks the text model, with search grounding, to rewrite the
// prompt for accuracy. An empty answer yields an empty Text.
func (c *Client) GroundedRewrite(ctx context.Context, prompt string) (*Rewrite, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	payload := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: GroundingInstruction(prompt)}}}},
		Tools:    []tool{{GoogleSearch: &struct{}{}}},
	}
	var resp generateResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(c.textModel))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}

	out := &Rewrite{}
	if len(resp.Candidates) == 0 {
		return out, nil
	}
	first := resp.Candidates[0]
	var text strings.Builder
	for _, p := range first.Content.Parts {
		text.WriteString(p.Text)
	}
	out.Text = strings.TrimSpace(text.String())
	if first.GroundingMetadata != nil {
		for _, chunk := range first.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			title := chunk.Web.Title
			if title == "" {
				title = "Reference"
			}
			out.Sources = append(out.Sources, domain.GroundingSource{Title: title, URI: chunk.Web.URI})
		}
	}
	c.logger.Debug().
		Str("model", c.textModel).
		Int("sources", len(out.Sources)).
		Msg("genai: grounded rewrite")
	return out, nil
}
