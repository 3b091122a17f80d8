package genai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

// VideoRef identifies a generated video. Extensions pass it back verbatim.
type VideoRef struct {
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType,omitempty"`
}

// VideoRequest describes one video generation.
type VideoRequest struct {
	Prompt      string
	Resolution  string
	AspectRatio string
	Image       []byte
	ImageMIME   string
	Previous    *VideoRef
}

// Operation is the state of a long running video job.
type Operation struct {
	Name  string
	Done  bool
	Video *VideoRef
	Err   error
}

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *videoImage `json:"image,omitempty"`
	Video  *VideoRef   `json:"video,omitempty"`
}

type videoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MIMEType           string `json:"mimeType"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
}

type predictRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type operationResponse struct {
	Name     string     `json:"name"`
	Done     bool       `json:"done"`
	Error    *errorBody `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video VideoRef `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

// SubmitVideo starts a video job. Requests carrying a previous video use the
// extension model.
func (c *Client) SubmitVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	model := c.videoModel
	instance := videoInstance{Prompt: req.Prompt}
	if req.Previous != nil {
		model = c.extendModel
		prev := *req.Previous
		instance.Video = &prev
	}
	if len(req.Image) > 0 {
		mime := req.ImageMIME
		if mime == "" {
			mime = http.DetectContentType(req.Image)
		}
		instance.Image = &videoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.Image),
			MIMEType:           mime,
		}
	}
	payload := predictRequest{
		Instances: []videoInstance{instance},
		Parameters: videoParameters{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
		},
	}

	var resp operationResponse
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		return nil, fmt.Errorf("%w: operation has no name", domain.ErrRemoteRejected)
	}
	c.logger.Debug().
		Str("model", model).
		Str("operation", resp.Name).
		Bool("extension", req.Previous != nil).
		Msg("genai: video operation submitted")
	return resp.operation(), nil
}

// GetOperation refreshes a video job.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: operation name is empty", domain.ErrValidation)
	}
	var resp operationResponse
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Name == "" {
		resp.Name = name
	}
	return resp.operation(), nil
}

func (r operationResponse) operation() *Operation {
	op := &Operation{Name: r.Name, Done: r.Done}
	if !r.Done {
		return op
	}
	if r.Error != nil && (r.Error.Code != 0 || r.Error.Message != "") {
		op.Err = operationError(*r.Error)
		return op
	}
	if r.Response != nil {
		for _, sample := range r.Response.GenerateVideoResponse.GeneratedSamples {
			if sample.Video.URI != "" {
				v := sample.Video
				op.Video = &v
				return op
			}
		}
	}
	op.Err = fmt.Errorf("%w: operation %s returned no video", domain.ErrEmptyResultPayload, r.Name)
	return op
}
