package models

// Lifestyle captures the boolean risk factors submitted with a case.
type Lifestyle struct {
	Smoking bool `json:"smoking"`
	Alcohol bool `json:"alcohol"`
}

// CaseInput is the request body for /predict.
type CaseInput struct {
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Symptoms     []string  `json:"symptoms"`
	DurationDays int       `json:"duration_days"`
	Lifestyle    Lifestyle `json:"lifestyle"`
}

// Prediction is one ranked disease candidate.
type Prediction struct {
	Disease    string  `json:"disease"`
	Confidence float64 `json:"confidence"`
}

// InputSummary echoes the normalized case back to the caller.
type InputSummary struct {
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	DurationDays int    `json:"duration_days"`
	SymptomCount int    `json:"symptom_count"`
}

// PredictionResult is the response body for /predict.
type PredictionResult struct {
	Predictions       []Prediction `json:"predictions"`
	ImportantSymptoms []string     `json:"important_symptoms"`
	ModelUsed         string       `json:"model_used"`
	InputSummary      InputSummary `json:"input_summary"`
}

// ModelScores holds one classifier's evaluation scores.
type ModelScores struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

// ModelMetrics is the response body for /metrics.
type ModelMetrics struct {
	BestModel string                 `json:"best_model"`
	Results   map[string]ModelScores `json:"results"`
}

// SymptomImportance is one entry of the global importance ranking.
type SymptomImportance struct {
	Symptom    string  `json:"symptom"`
	Importance float64 `json:"importance"`
}

// Metadata is the response body for /metadata.
type Metadata struct {
	Symptoms []string `json:"symptoms"`
	Diseases []string `json:"diseases"`
}

// ModelInfo is the single-call dashboard aggregate for /model-info.
type ModelInfo struct {
	BestModel         string                 `json:"best_model"`
	Metrics           map[string]ModelScores `json:"metrics"`
	TopGlobalSymptoms []SymptomImportance    `json:"top_global_symptoms"`
}

// APIError is the uniform error body; every failure carries a message.
type APIError struct {
	Message string `json:"message"`
}
