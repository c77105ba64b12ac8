package models

import "time"

// AiAnalysis contains the qualitative insights from the Gemini model.
type AiAnalysis struct {
	Summary         string   `json:"summary"`
	PositiveFactors []string `json:"positive_factors"`
	NegativeFactors []string `json:"negative_factors"`
}

// ForecastPeriod defines the start and end dates for a forecast.
type ForecastPeriod struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// ForecastInsightResponse is the complete structure for the forecast insights API response.
type ForecastInsightResponse struct {
	ReportName     string          `json:"reportName"`
	GeneratedAt    time.Time       `json:"generatedAt"`
	MetricType     MetricType      `json:"metricType"`
	ForecastPeriod ForecastPeriod  `json:"forecastPeriod"`
	Forecast       *ForecastResult `json:"forecast"`
	AiAnalysis     AiAnalysis      `json:"aiAnalysis"`
}
