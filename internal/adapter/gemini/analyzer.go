package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"voicebrief/backend/internal/pipeline"
	"voicebrief/backend/internal/retry"
	"voicebrief/backend/internal/settings"
)

const analyzerModel = "gemini-2.0-flash"

const analysisPrompt = `Transcribe the attached audio, then produce a brief.
Respond with a single JSON object and nothing else:
{
  "transcript": "full transcript text",
  "summary": "2-4 sentence summary",
  "highlights": ["key point", "..."],
  "language": "BCP-47 tag of the spoken language"
}`

// Analyzer transcribes and summarizes audio through Gemini. The API key is
// read from settings on every call so an operator can rotate it without a
// restart; the underlying client is rebuilt only when the key changes.
type Analyzer struct {
	settingsSvc *settings.Service
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewAnalyzer(svc *settings.Service, opts ...option.ClientOption) *Analyzer {
	return &Analyzer{
		settingsSvc: svc,
		clientOpts:  opts,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, input []byte) (*pipeline.Analysis, error) {
	s, err := a.settingsSvc.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	if s.GeminiAPIKey == "" {
		return nil, retry.Permanent(fmt.Errorf("gemini api key not configured"))
	}

	client, err := a.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(analyzerModel)
	model.ResponseMIMEType = "application/json"

	res, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: audioMIME(input), Data: input},
		genai.Text(analysisPrompt),
	)
	if err != nil {
		return nil, err
	}

	return parseAnalysis(res)
}

func (a *Analyzer) getClient(ctx context.Context, key string) (*genai.Client, error) {
	a.mu.RLock()
	if a.client != nil && a.currentKey == key {
		defer a.mu.RUnlock()
		return a.client, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double check
	if a.client != nil && a.currentKey == key {
		return a.client, nil
	}

	if a.client != nil {
		if err := a.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(a.clientOpts, option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	a.client = client
	a.currentKey = key
	return client, nil
}

// parseAnalysis extracts the JSON brief from a model response. A response
// that cannot be parsed will not improve on retry, so parse failures are
// permanent.
func parseAnalysis(res *genai.GenerateContentResponse) (*pipeline.Analysis, error) {
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return nil, retry.Permanent(fmt.Errorf("empty model response"))
	}

	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	var out pipeline.Analysis
	if err := json.Unmarshal([]byte(sb.String()), &out); err != nil {
		return nil, retry.Permanent(fmt.Errorf("malformed analysis response: %w", err))
	}
	if out.Transcript == "" {
		return nil, retry.Permanent(fmt.Errorf("analysis response missing transcript"))
	}
	return &out, nil
}

func audioMIME(input []byte) string {
	if mime := http.DetectContentType(input); strings.HasPrefix(mime, "audio/") {
		return mime
	}
	return "audio/mpeg"
}
