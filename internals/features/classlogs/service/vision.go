package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"pantiku_backend/internals/configs"
)

const (
	visionDefaultBaseURL = "https://api.openai.com/v1/chat/completions"
	visionDefaultModel   = "gpt-4o-mini"
	visionMaxPhotos      = 4
)

// VisionResult: verdict mentah dari vision model, sebelum difusikan dengan
// sinyal GPS/EXIF oleh PhotoVerification.
type VisionResult struct {
	KidsCount       int    `json:"kids_count"`
	Location        string `json:"location"`
	PhotoTimestamp  string `json:"photo_timestamp"`
	OrphanageMatch  string `json:"orphanage_match"` // high|likely|uncertain|unlikely
	ConfidenceNotes string `json:"confidence_notes"`
	PrimaryPhotoURL string `json:"primary_photo_url"`
}

// VisionAnalyzer: kapabilitas analisis foto. Return (nil, nil) = analisis
// di-skip (mis. API key tidak diset) — outcome valid, bukan error.
type VisionAnalyzer interface {
	AnalyzeClassPhotos(ctx context.Context, photoURLs []string, orphanageName string) (*VisionResult, error)
}

// VisionClient memanggil chat-completions API (OpenAI-compatible) dengan
// image_url content parts.
type VisionClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewVisionClientFromEnv() *VisionClient {
	return &VisionClient{
		apiKey:  configs.VisionAPIKey,
		baseURL: configs.GetEnv("VISION_BASE_URL", visionDefaultBaseURL),
		model:   configs.GetEnv("VISION_MODEL", visionDefaultModel),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type visionContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string              `json:"role"`
	Content []visionContentPart `json:"content"`
}

type visionRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	Messages  []visionMessage `json:"messages"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const visionPromptTemplate = `You are verifying photos from a children's English class at an orphanage named %q.
Respond with ONLY a JSON object, no prose, with keys:
kids_count (integer, how many children are visible),
location (short free-text description of the visible location),
photo_timestamp (any date/time visible IN the image content, e.g. a wall clock or timestamp overlay, else ""),
orphanage_match (one of "high","likely","uncertain","unlikely": does the scene plausibly match that orphanage),
confidence_notes (one sentence rationale),
primary_photo_url (the URL of the clearest photo).`

// AnalyzeClassPhotos memanggil vision API. API key kosong → skip (nil, nil).
func (v *VisionClient) AnalyzeClassPhotos(ctx context.Context, photoURLs []string, orphanageName string) (*VisionResult, error) {
	if v == nil || v.apiKey == "" {
		log.Println("[INFO] vision: API key kosong, analisis di-skip")
		return nil, nil
	}
	if len(photoURLs) == 0 {
		return nil, nil
	}
	if len(photoURLs) > visionMaxPhotos {
		photoURLs = photoURLs[:visionMaxPhotos]
	}

	parts := []visionContentPart{
		{Type: "text", Text: fmt.Sprintf(visionPromptTemplate, orphanageName)},
	}
	for _, u := range photoURLs {
		p := visionContentPart{Type: "image_url"}
		p.ImageURL = &struct {
			URL string `json:"url"`
		}{URL: u}
		parts = append(parts, p)
	}

	reqBody := visionRequest{
		Model:     v.model,
		MaxTokens: 500,
		Messages:  []visionMessage{{Role: "user", Content: parts}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vision: read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: status %d: %s", resp.StatusCode, truncate(string(body), 300))
	}

	var vr visionResponse
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("vision: decode: %w", err)
	}
	if len(vr.Choices) == 0 {
		return nil, fmt.Errorf("vision: empty choices")
	}

	return parseVisionContent(vr.Choices[0].Message.Content)
}

// parseVisionContent mengambil objek JSON dari balasan model (model kadang
// membungkus dengan ```json fence).
func parseVisionContent(content string) (*VisionResult, error) {
	content = strings.TrimSpace(content)
	if i := strings.Index(content, "{"); i >= 0 {
		if j := strings.LastIndex(content, "}"); j > i {
			content = content[i : j+1]
		}
	}

	var out VisionResult
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("vision: balasan bukan JSON valid: %w", err)
	}

	switch out.OrphanageMatch {
	case "high", "likely", "uncertain", "unlikely":
	default:
		out.OrphanageMatch = "uncertain"
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
