package validation

import (
	"fmt"
	"sort"
	"strings"

	"artlens/model"

	"github.com/google/uuid"
)

// DefaultLanguage is applied when a request omits the language.
const DefaultLanguage = "en"

var supportedLanguages = map[string]bool{"en": true}

// Errors collects field errors keyed by JSON field name.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e Errors) orNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// normalizeLanguage fills in the default language and checks it is supported.
func normalizeLanguage(lang *string, errs Errors) {
	if *lang == "" {
		*lang = DefaultLanguage
		return
	}
	if !supportedLanguages[*lang] {
		errs["language"] = fmt.Sprintf("unsupported language %q", *lang)
	}
}

// Analyze validates a describe request and applies defaults.
func Analyze(req *model.AnalyzeImageRequest) error {
	errs := Errors{}
	if req.Image == "" {
		errs["image"] = "Image is required"
	}
	normalizeLanguage(&req.Language, errs)
	return errs.orNil()
}

// Chat validates a chat request and applies defaults.
func Chat(req *model.ChatMessageRequest) error {
	errs := Errors{}
	if _, err := uuid.Parse(req.ScanID); err != nil {
		errs["scanId"] = "Invalid uuid"
	}
	if req.Message == "" {
		errs["message"] = "Message is required"
	}
	normalizeLanguage(&req.Language, errs)
	return errs.orNil()
}

// GenerateAudio validates a narration request for a scan.
func GenerateAudio(req *model.GenerateAudioRequest) error {
	errs := Errors{}
	if req.ScanID == "" {
		errs["scanId"] = "Scan ID is required"
	}
	if strings.TrimSpace(req.Description) == "" {
		errs["description"] = "Description is required"
	}
	normalizeLanguage(&req.Language, errs)
	return errs.orNil()
}

// ChatAudio validates a narration request for a chat answer.
func ChatAudio(req *model.ChatAudioRequest) error {
	errs := Errors{}
	if req.ChatID == "" {
		errs["chatId"] = "Chat ID is required"
	}
	if strings.TrimSpace(req.Text) == "" {
		errs["text"] = "Text is required"
	}
	normalizeLanguage(&req.Language, errs)
	return errs.orNil()
}

// Transcribe validates a transcription request.
func Transcribe(req *model.TranscribeRequest) error {
	errs := Errors{}
	if req.Audio == "" {
		errs["audio"] = "Audio data is required"
	}
	normalizeLanguage(&req.Language, errs)
	return errs.orNil()
}

// Location checks a coordinate pair.
func Location(latitude, longitude float64) error {
	errs := Errors{}
	if latitude < -90 || latitude > 90 {
		errs["latitude"] = "Latitude must be between -90 and 90"
	}
	if longitude < -180 || longitude > 180 {
		errs["longitude"] = "Longitude must be between -180 and 180"
	}
	return errs.orNil()
}
