package visionsvc

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// extraction prompt; the model answers with the JSON object enforced
// by the response schema below.
const extractionPrompt = `Tu es MaîtreNotifie, l'assistant IA du professeur de musique João Ferreira.
Analyse cette image d'un tableau ou d'un carnet de musique.

CRITÈRES D'EXTRACTION (CONTEXTE FRANÇAIS) :
1. Repère la section des 'Devoirs' ou 'À faire pour le...'.
2. Transcris fidèlement les termes de musique français (rythmes, travail
   d'oreille, lecture de notes, gammes) et les références de pages
   (ex: p. 37 n° 5 et 7).
3. Si une date est indiquée (ex: 13/12 ou Pour le 20/12), inclus-la obligatoirement.

STRUCTURE DE RÉPONSE JSON :
- "homeworkText": le texte structuré des devoirs pour les parents (poli et clair).
- "summary": un résumé pédagogique de ce qui a été travaillé durant le cours.`

// string defaults for tolerated missing/extra response fields
const (
	defaultHomeworkText = "Transcription impossible."
	defaultSummary      = "Résumé non disponible."
)

type (
	generateRequest struct {
		Contents         []content        `json:"contents"`
		GenerationConfig generationConfig `json:"generationConfig"`
	}

	content struct {
		Parts []part `json:"parts"`
	}

	part struct {
		Text       string      `json:"text,omitempty"`
		InlineData *inlineData `json:"inline_data,omitempty"`
	}

	inlineData struct {
		MimeType string `json:"mime_type"`
		Data     string `json:"data"`
	}

	generationConfig struct {
		ResponseMimeType string          `json:"response_mime_type"`
		ResponseSchema   json.RawMessage `json:"response_schema"`
	}

	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

var responseSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"homeworkText": {"type": "STRING"},
		"summary": {"type": "STRING"}
	},
	"required": ["homeworkText", "summary"]
}`)

type geminiService struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	logger  core.Logger
}

var _ core.ExtractionService = (*geminiService)(nil)

func NewGeminiService(conf *core.Config, logger core.Logger) *geminiService {
	return &geminiService{
		key:     conf.Gemini.APIKey,
		model:   conf.Gemini.Model,
		baseURL: defaultBaseURL,
		client:  http.DefaultClient,
		logger:  logger,
	}
}

// Extract sends the captured image to the Gemini vision API once and
// decodes its structured answer. Any network, service or parse failure
// surfaces as a single *core.ExtractionError; no retry is attempted.
func (svc *geminiService) Extract(ctx context.Context, image []byte, mimeType string) (core.HomeworkExtract, error) {
	var extract core.HomeworkExtract

	if svc.key == "" {
		return extract, core.NewExtractionError(errors.New("no Gemini API key configured"))
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: extractionPrompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return extract, core.NewExtractionError(errors.Wrap(err, "encoding request"))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", svc.baseURL, svc.model, svc.key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return extract, core.NewExtractionError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := svc.client.Do(req)
	if err != nil {
		return extract, core.NewExtractionError(err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return extract, core.NewExtractionError(errors.Errorf("service responded with status %d", res.StatusCode))
	}

	var gr generateResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return extract, core.NewExtractionError(errors.Wrap(err, "decoding response"))
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return extract, core.NewExtractionError(errors.New("response contains no candidates"))
	}

	// extra or missing fields are tolerated with string defaults
	if err := json.Unmarshal([]byte(gr.Candidates[0].Content.Parts[0].Text), &extract); err != nil {
		return extract, core.NewExtractionError(errors.Wrap(err, "decoding extraction payload"))
	}
	if extract.HomeworkText == "" {
		extract.HomeworkText = defaultHomeworkText
	}
	if extract.Summary == "" {
		extract.Summary = defaultSummary
	}
	return extract, nil
}
