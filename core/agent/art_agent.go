package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"artlens/core/prompt"
	"artlens/logger"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

const (
	FallbackTitle       = "Artwork Analysis"
	FallbackDescription = "We're unable to analyze this artwork at the moment. Please try again later or contact support for assistance."
	FallbackAnswer      = "I'm sorry, I'm unable to provide an answer at the moment. Please try again later."

	// Parsed descriptions shorter than this are replaced by the whole reply.
	minDescriptionLength = 30
)

var (
	titlePattern       = regexp.MustCompile(`(?i)title:\s*(.*)`)
	descriptionPattern = regexp.MustCompile(`(?is)description:\s*(.*)`)
)

// ErrEmptyAudio is returned by Transcribe for an empty recording.
var ErrEmptyAudio = errors.New("audio is empty")

// Config contains configuration for the art agent.
type Config struct {
	APIKey          string
	BaseURL         string
	VisionModel     string
	ChatModel       string
	TranscribeModel string
	Timeout         time.Duration
	HTTPClient      *http.Client
	MaxRetries      int
}

// Analysis is the title and description generated for an artwork photo.
type Analysis struct {
	Title       string
	Description string
}

// ArtAgent talks to an OpenAI-compatible API for vision, chat and speech-to-text.
type ArtAgent struct {
	config  *Config
	client  openai.Client
	prompts *prompt.Store
}

// NewArtAgent creates a new art agent. prompts may be nil.
func NewArtAgent(config *Config, prompts *prompt.Store) *ArtAgent {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &ArtAgent{
		config:  config,
		client:  openai.NewClient(opts...),
		prompts: prompts,
	}
}

// Client exposes the underlying OpenAI client for the speech fallback.
func (a *ArtAgent) Client() *openai.Client {
	return &a.client
}

// AnalyzeArtwork asks the vision model for a title and a short description.
// It never fails: any error yields the fallback analysis.
func (a *ArtAgent) AnalyzeArtwork(ctx context.Context, imageBase64, location, language string) Analysis {
	systemPrompt := a.prompts.Get(prompt.AnalyzeSystem)
	if location != "" {
		systemPrompt += fmt.Sprintf(" The user is currently at: %s. Consider this context if relevant.", location)
	}

	imageURL := imageBase64
	if !strings.HasPrefix(imageURL, "data:") {
		imageURL = "data:image/jpeg;base64," + imageBase64
	}

	params := openai.ChatCompletionNewParams{
		Model: a.config.VisionModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							openai.TextContentPart(a.prompts.Get(prompt.AnalyzeUser)),
							openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
								URL:    imageURL,
								Detail: "high",
							}),
						},
					},
				},
			},
		},
		MaxTokens:   param.NewOpt(int64(700)),
		Temperature: param.NewOpt(0.5),
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("artwork analysis request failed",
			logger.String("model", a.config.VisionModel),
			logger.ErrorField(err))
		return Analysis{Title: FallbackTitle, Description: FallbackDescription}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		logger.Warn("artwork analysis returned no content", logger.String("model", a.config.VisionModel))
		return Analysis{Title: FallbackTitle, Description: FallbackDescription}
	}

	content := resp.Choices[0].Message.Content
	logger.Debug("artwork analysis raw response", logger.String("content", content))

	analysis := ParseAnalysis(content)
	logger.Info("artwork analyzed",
		logger.String("title", analysis.Title),
		logger.Int("descriptionLength", len(analysis.Description)))
	return analysis
}

// ParseAnalysis extracts the "Title:" and "Description:" parts of a reply.
func ParseAnalysis(content string) Analysis {
	analysis := Analysis{Title: FallbackTitle}

	if m := titlePattern.FindStringSubmatch(content); m != nil {
		analysis.Title = strings.TrimSpace(m[1])
	}
	if m := descriptionPattern.FindStringSubmatch(content); m != nil {
		analysis.Description = strings.TrimSpace(m[1])
	}
	if len(analysis.Description) < minDescriptionLength {
		logger.Warn("no structured description extracted, using full reply")
		analysis.Description = content
	}
	return analysis
}

// Chat answers a question about an artwork, given its title and description as context.
// Failures yield FallbackAnswer.
func (a *ArtAgent) Chat(ctx context.Context, message, artContext, language string) string {
	params := openai.ChatCompletionNewParams{
		Model: a.config.ChatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(a.prompts.Get(prompt.ChatSystem)),
			openai.UserMessage(fmt.Sprintf("Context: %s\n\nQuestion: %s", artContext, message)),
		},
		MaxTokens:   param.NewOpt(int64(500)),
		Temperature: param.NewOpt(0.7),
	}

	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		logger.Error("chat request failed",
			logger.String("model", a.config.ChatModel),
			logger.ErrorField(err))
		return FallbackAnswer
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return FallbackAnswer
	}
	return resp.Choices[0].Message.Content
}

// Transcribe converts a WAV recording to text.
func (a *ArtAgent) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model: openai.AudioModel(a.config.TranscribeModel),
	}
	if language != "" {
		params.Language = param.NewOpt(language)
	}

	resp, err := a.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	logger.Debug("audio transcribed",
		logger.Int("audioBytes", len(audio)),
		logger.Int("textLength", len(resp.Text)))
	return resp.Text, nil
}
