package genai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/kris790/Kaleidoscope/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, key string, fn roundTripFunc) *Client {
	t.Helper()
	c, err := NewClient(Options{
		APIKey:     key,
		BaseURL:    "https://gemini.test/v1beta",
		HTTPClient: &http.Client{Transport: fn},
	})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	return c
}

func TestMissingKeyIsAuthError(t *testing.T) {
	called := false
	c := newTestClient(t, "", func(r *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(200, `{}`), nil
	})
	_, err := c.SubmitVideo(context.Background(), VideoRequest{Prompt: "a fox"})
	if !errors.Is(err, domain.ErrRemoteAuthExpired) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if called {
		t.Fatal("no request may be sent without a key")
	}
	c.SetAPIKey("k")
	if !c.HasAPIKey() {
		t.Fatal("expected key after SetAPIKey")
	}
}

func TestSubmitVideoRequestShape(t *testing.T) {
	var captured predictRequest
	c := newTestClient(t, "secret", func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/v1beta/models/veo-3.1-generate-preview:predictLongRunning" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Fatalf("expected key query param, got %q", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return jsonResponse(200, `{"name":"models/veo/operations/op-1"}`), nil
	})

	op, err := c.SubmitVideo(context.Background(), VideoRequest{
		Prompt:      "Continue the scene naturally: rain",
		Resolution:  "720p",
		AspectRatio: "16:9",
		Previous:    &VideoRef{URI: "files/prev"},
	})
	if err != nil {
		t.Fatalf("SubmitVideo returned error: %v", err)
	}
	if op.Name != "models/veo/operations/op-1" || op.Done {
		t.Fatalf("unexpected operation %+v", op)
	}
	if len(captured.Instances) != 1 || captured.Instances[0].Video == nil || captured.Instances[0].Video.URI != "files/prev" {
		t.Fatalf("previous video not forwarded: %+v", captured.Instances)
	}
	if captured.Parameters.Resolution != "720p" || captured.Parameters.AspectRatio != "16:9" {
		t.Fatalf("unexpected parameters %+v", captured.Parameters)
	}
}

func TestSubmitVideoWithImageUsesFastModel(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		if !strings.Contains(r.URL.Path, DefaultVideoModel) {
			t.Fatalf("expected initial model in %s", r.URL.Path)
		}
		var req predictRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Instances[0].Image == nil || req.Instances[0].Image.MIMEType != "image/png" {
			t.Fatalf("expected sniffed png image, got %+v", req.Instances[0].Image)
		}
		return jsonResponse(200, `{"name":"op-2"}`), nil
	})
	if _, err := c.SubmitVideo(context.Background(), VideoRequest{Prompt: "x", Image: png}); err != nil {
		t.Fatalf("SubmitVideo returned error: %v", err)
	}
}

func TestGetOperationOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		done    bool
		uri     string
		wantErr error
	}{
		{name: "pending", body: `{"name":"op","done":false}`},
		{name: "video", body: `{"name":"op","done":true,"response":{"generateVideoResponse":{"generatedSamples":[{"video":{"uri":"https://files/v.mp4"}}]}}}`, done: true, uri: "https://files/v.mp4"},
		{name: "empty", body: `{"name":"op","done":true,"response":{"generateVideoResponse":{"generatedSamples":[]}}}`, done: true, wantErr: domain.ErrEmptyResultPayload},
		{name: "unavailable", body: `{"name":"op","done":true,"error":{"code":14,"message":"try later"}}`, done: true, wantErr: domain.ErrRemoteTransient},
		{name: "policy", body: `{"name":"op","done":true,"error":{"code":3,"message":"blocked"}}`, done: true, wantErr: domain.ErrRemoteRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
				if r.Method != http.MethodGet || r.URL.Path != "/v1beta/operations/op" {
					t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				return jsonResponse(200, tt.body), nil
			})
			op, err := c.GetOperation(context.Background(), "operations/op")
			if err != nil {
				t.Fatalf("GetOperation returned error: %v", err)
			}
			if op.Done != tt.done {
				t.Fatalf("done = %v, want %v", op.Done, tt.done)
			}
			if tt.wantErr != nil {
				if !errors.Is(op.Err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, op.Err)
				}
				return
			}
			if op.Err != nil {
				t.Fatalf("unexpected operation error %v", op.Err)
			}
			if tt.uri != "" && (op.Video == nil || op.Video.URI != tt.uri) {
				t.Fatalf("unexpected video %+v", op.Video)
			}
		})
	}
}

func TestHTTPErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{status: 401, body: `{"error":{"code":401,"message":"API key not valid"}}`, want: domain.ErrRemoteAuthExpired},
		{status: 403, body: `forbidden`, want: domain.ErrRemoteAuthExpired},
		{status: 404, body: `{"error":{"code":404,"message":"Requested entity was not found."}}`, want: domain.ErrRemoteAuthExpired},
		{status: 429, body: `{"error":{"message":"quota"}}`, want: domain.ErrRemoteTransient},
		{status: 503, body: ``, want: domain.ErrRemoteTransient},
		{status: 400, body: `{"error":{"message":"bad prompt"}}`, want: domain.ErrRemoteRejected},
	}
	for _, tt := range tests {
		c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
			return jsonResponse(tt.status, tt.body), nil
		})
		_, err := c.SubmitVideo(context.Background(), VideoRequest{Prompt: "p"})
		if !errors.Is(err, tt.want) {
			t.Fatalf("status %d: expected %v, got %v", tt.status, tt.want, err)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Status != tt.status {
			t.Fatalf("status %d: expected APIError, got %T", tt.status, err)
		}
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	})
	_, err := c.GetOperation(context.Background(), "operations/x")
	if !errors.Is(err, domain.ErrRemoteTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestGroundedRewrite(t *testing.T) {
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tools) != 1 || req.Tools[0].GoogleSearch == nil {
			t.Fatalf("expected google search tool, got %+v", req.Tools)
		}
		if !strings.Contains(req.Contents[0].Parts[0].Text, `"apollo launch"`) {
			t.Fatalf("prompt not embedded: %q", req.Contents[0].Parts[0].Text)
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":" Saturn V lifting off "}]},
			"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://nasa.gov","title":"NASA"}},{"web":{"uri":"https://wiki.org"}},{}]}}]}`), nil
	})
	out, err := c.GroundedRewrite(context.Background(), "apollo launch")
	if err != nil {
		t.Fatalf("GroundedRewrite returned error: %v", err)
	}
	if out.Text != "Saturn V lifting off" {
		t.Fatalf("unexpected text %q", out.Text)
	}
	if len(out.Sources) != 2 || out.Sources[1].Title != "Reference" {
		t.Fatalf("unexpected sources %+v", out.Sources)
	}
}

func TestSynthesizeSpeechDialogue(t *testing.T) {
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		cfg := req.GenerationConfig.SpeechConfig
		if cfg.MultiSpeakerVoiceConfig == nil || len(cfg.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs) != 2 {
			t.Fatalf("expected dialogue config, got %+v", cfg)
		}
		if cfg.MultiSpeakerVoiceConfig.SpeakerVoiceConfigs[1].VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" {
			t.Fatalf("unexpected second voice")
		}
		if !strings.HasPrefix(req.Contents[0].Parts[0].Text, "TTS the following conversation between Joe and Jane") {
			t.Fatalf("unexpected text %q", req.Contents[0].Parts[0].Text)
		}
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"audio/L16","data":"AAAA"}}]}}]}`), nil
	})
	data, err := c.SynthesizeSpeech(context.Background(), SpeechRequest{
		Text:  "Joe: hi\nJane: hello",
		Voice: domain.VoiceConfig{Speakers: domain.DefaultDialogue()},
	})
	if err != nil || data != "AAAA" {
		t.Fatalf("unexpected result %q, %v", data, err)
	}
}

func TestSynthesizeSpeechWithoutAudio(t *testing.T) {
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`), nil
	})
	_, err := c.SynthesizeSpeech(context.Background(), SpeechRequest{Text: "hello"})
	if !errors.Is(err, domain.ErrEmptyResultPayload) {
		t.Fatalf("expected empty payload, got %v", err)
	}
}

func TestDownloadAddsKey(t *testing.T) {
	c := newTestClient(t, "k", func(r *http.Request) (*http.Response, error) {
		if r.URL.Query().Get("key") != "k" || r.URL.Query().Get("alt") != "media" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		return &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"video/mp4"}},
			Body:       io.NopCloser(strings.NewReader("mp4bytes")),
		}, nil
	})
	data, mime, err := c.Download(context.Background(), "https://files.test/v.mp4?alt=media")
	if err != nil || string(data) != "mp4bytes" || mime != "video/mp4" {
		t.Fatalf("unexpected download %q %q %v", data, mime, err)
	}
}
