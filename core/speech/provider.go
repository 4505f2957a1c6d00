package speech

import (
	"artlens/config"
	"artlens/logger"

	"github.com/openai/openai-go"
)

// NewSynthesizer picks ElevenLabs when a key is configured and falls back to
// OpenAI speech. It returns nil when neither provider is available.
func NewSynthesizer(cfg *config.Config, client *openai.Client) Synthesizer {
	switch {
	case cfg.ElevenLabsAPIKey != "":
		logger.Info("narration provider: ElevenLabs", logger.String("voice", cfg.ElevenLabsVoiceID))
		return NewElevenLabs(ElevenLabsConfig{
			APIKey:  cfg.ElevenLabsAPIKey,
			BaseURL: cfg.ElevenLabsBaseURL,
			VoiceID: cfg.ElevenLabsVoiceID,
			Model:   cfg.ElevenLabsModel,
		})
	case cfg.OpenAIAPIKey != "" && client != nil:
		logger.Info("narration provider: OpenAI", logger.String("model", cfg.SpeechModel))
		return NewOpenAISpeech(client, cfg.SpeechModel, "")
	default:
		logger.Warn("no speech provider configured, narration disabled")
		return nil
	}
}
