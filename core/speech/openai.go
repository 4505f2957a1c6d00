package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
)

// OpenAISpeech synthesizes speech with the OpenAI audio API.
type OpenAISpeech struct {
	client *openai.Client
	model  string
	voice  string
}

// NewOpenAISpeech wraps client. Voice defaults to "alloy".
func NewOpenAISpeech(client *openai.Client, model, voice string) *OpenAISpeech {
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAISpeech{client: client, model: model, voice: voice}
}

func (o *OpenAISpeech) Voice() string {
	return "openai:" + o.voice + ":" + o.model
}

func (o *OpenAISpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech returned empty audio")
	}
	return audio, nil
}
