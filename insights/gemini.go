package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"app/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiSummarizer asks Gemini for a short narrative over a computed forecast.
type GeminiSummarizer struct {
	apiKey string
	model  string
}

func NewGeminiSummarizer(apiKey, model string) *GeminiSummarizer {
	return &GeminiSummarizer{apiKey: apiKey, model: model}
}

// Summarize sends the trend and forecast to Gemini and parses its JSON answer.
func (g *GeminiSummarizer) Summarize(ctx context.Context, metric models.MetricType, trends []models.TrendPoint, result *models.ForecastResult) (*models.AiAnalysis, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		log.Printf("Error creating Gemini client: %v", err)
		return nil, fmt.Errorf("failed to connect to AI service: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.Text(constructInsightPrompt(metric, trends, result)))
	if err != nil {
		log.Printf("Error from Gemini API: %v", err)
		return nil, fmt.Errorf("failed to generate forecast insights: %w", err)
	}

	return parseGeminiResponse(resp)
}

// constructInsightPrompt describes the fitted history and projection for the model.
func constructInsightPrompt(metric models.MetricType, trends []models.TrendPoint, result *models.ForecastResult) string {
	var history strings.Builder
	for _, p := range trends {
		fmt.Fprintf(&history, "%s: %.2f\n", p.Date.Format(models.DateLayout), p.Value)
	}
	if history.Len() == 0 {
		history.WriteString("No sales data available for the lookback window.\n")
	}

	var projection strings.Builder
	for _, p := range result.Forecasts {
		fmt.Fprintf(&projection, "%s: %.2f (95%% band %.2f to %.2f)\n",
			p.PredictedDate.Format(models.DateLayout), p.PredictedValue, p.ConfidenceLower, p.ConfidenceUpper)
	}

	jsonFormat := `{"summary":"string","positive_factors":["string",...],"negative_factors":["string",...]}`

	return fmt.Sprintf(`
        You are an expert retail data analyst. Explain the following %s forecast to a shop owner in plain language.

        **Model:**
        - Algorithm: %s
        - R squared: %.4f
        - Days of sales history used: %d

        **Daily history:**
        %s
        **Projection:**
        %s
        **Required Output:**
        You must provide a single, minified JSON object with the following exact structure. Do not include any markdown formatting, backticks, or explanatory text before or after the JSON object.

        %s
    `, metricLabel(metric), result.Algorithm, result.RSquared, result.HistoricalDaysUsed, history.String(), projection.String(), jsonFormat)
}

func metricLabel(metric models.MetricType) string {
	switch metric {
	case models.MetricRevenue:
		return "daily revenue"
	case models.MetricTransactions:
		return "daily transaction count"
	case models.MetricAverageTicket:
		return "average ticket size"
	}
	return string(metric)
}

func extractJSON(rawString string) string {
	start := strings.Index(rawString, "{")
	end := strings.LastIndex(rawString, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return rawString[start : end+1]
}

// parseGeminiResponse parses the JSON from Gemini into an AiAnalysis.
func parseGeminiResponse(resp *genai.GenerateContentResponse) (*models.AiAnalysis, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no content received from AI")
	}

	var geminiText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			geminiText += string(txt)
		}
	}
	return parseAnalysisText(geminiText)
}

func parseAnalysisText(geminiText string) (*models.AiAnalysis, error) {
	if geminiText == "" {
		return nil, fmt.Errorf("no text content received from AI")
	}

	jsonStr := extractJSON(geminiText)
	if jsonStr == "" {
		log.Printf("Could not extract JSON from Gemini response: %s", geminiText)
		return nil, fmt.Errorf("failed to parse AI response format")
	}

	var analysis models.AiAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		log.Printf("Error parsing Gemini JSON: %v\nRaw JSON: %s", err, jsonStr)
		return nil, fmt.Errorf("failed to parse AI forecast insights")
	}
	return &analysis, nil
}
