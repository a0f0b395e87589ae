// Package predictor encodes a submitted case into the trained feature
// vector and scores it against the loaded model bundle.
package predictor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"clinsight/internal/artifact"
	"clinsight/internal/models"
)

const (
	durationColumn = "symptom_duration"
	topPredictions = 3
	topImportant   = 3
)

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

// ValidationError marks a client-side input problem; handlers map it to
// a 400 response.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err originates from input validation
// rather than from the model.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Predictor holds the immutable model bundle. It is loaded once at
// startup and read concurrently without locking.
type Predictor struct {
	bundle *artifact.Bundle
	vocab  map[string]bool
	ranked []models.SymptomImportance
	log    zerolog.Logger
}

func New(bundle *artifact.Bundle, log zerolog.Logger) *Predictor {
	vocab := make(map[string]bool, len(bundle.Symptoms))
	for _, s := range bundle.Symptoms {
		vocab[s] = true
	}

	ranked := make([]models.SymptomImportance, 0, len(bundle.SymptomImportance))
	for symptom, weight := range bundle.SymptomImportance {
		ranked = append(ranked, models.SymptomImportance{Symptom: symptom, Importance: weight})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Importance != ranked[j].Importance {
			return ranked[i].Importance > ranked[j].Importance
		}
		return ranked[i].Symptom < ranked[j].Symptom
	})

	return &Predictor{bundle: bundle, vocab: vocab, ranked: ranked, log: log}
}

// Symptoms returns the trained feature vocabulary in bundle order.
func (p *Predictor) Symptoms() []string { return p.bundle.Symptoms }

// Diseases returns the class labels the model can predict.
func (p *Predictor) Diseases() []string { return p.bundle.Classes }

// ModelName returns the name of the persisted best classifier.
func (p *Predictor) ModelName() string { return p.bundle.BestModel }

// Importance returns the top n entries of the global symptom-importance
// ranking, descending by weight.
func (p *Predictor) Importance(n int) []models.SymptomImportance {
	if n > len(p.ranked) {
		n = len(p.ranked)
	}
	out := make([]models.SymptomImportance, n)
	copy(out, p.ranked[:n])
	return out
}

// BundleMetrics returns the per-model scores embedded in the bundle.
func (p *Predictor) BundleMetrics() map[string]models.ModelScores { return p.bundle.Metrics }

// Predict validates and encodes the case, then returns the top-3 ranked
// diseases with the globally most important of the submitted symptoms.
// Identical input always yields identical output.
func (p *Predictor) Predict(input models.CaseInput) (*models.PredictionResult, error) {
	normalized, err := p.normalize(input)
	if err != nil {
		return nil, err
	}

	vector := p.encode(input, normalized)
	probs := p.softmax(vector)

	ranking := make([]models.Prediction, len(p.bundle.Classes))
	for i, class := range p.bundle.Classes {
		ranking[i] = models.Prediction{Disease: class, Confidence: probs[i]}
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Confidence != ranking[j].Confidence {
			return ranking[i].Confidence > ranking[j].Confidence
		}
		return ranking[i].Disease < ranking[j].Disease
	})
	if len(ranking) > topPredictions {
		ranking = ranking[:topPredictions]
	}
	for i := range ranking {
		ranking[i].Confidence = round4(ranking[i].Confidence)
	}

	p.log.Debug().
		Str("top_disease", ranking[0].Disease).
		Float64("confidence", ranking[0].Confidence).
		Int("symptoms", len(normalized)).
		Msg("prediction served")

	return &models.PredictionResult{
		Predictions:       ranking,
		ImportantSymptoms: p.importantSymptoms(normalized),
		ModelUsed:         p.bundle.BestModel,
		InputSummary: models.InputSummary{
			Age:          input.Age,
			Gender:       strings.ToLower(strings.TrimSpace(input.Gender)),
			DurationDays: input.DurationDays,
			SymptomCount: len(normalized),
		},
	}, nil
}

// normalize trims, lowercases and dedupes the submitted symptoms, then
// checks every field range. Unknown symptom identifiers are rejected
// rather than dropped so the accepted set is exactly /metadata's.
func (p *Predictor) normalize(input models.CaseInput) ([]string, error) {
	if input.Age < 1 || input.Age > 100 {
		return nil, validationErrorf("age must be between 1 and 100, got %d", input.Age)
	}
	gender := strings.ToLower(strings.TrimSpace(input.Gender))
	if !validGenders[gender] {
		return nil, validationErrorf("gender must be one of male, female, other")
	}
	if input.DurationDays < 1 || input.DurationDays > 60 {
		return nil, validationErrorf("duration_days must be between 1 and 60, got %d", input.DurationDays)
	}

	seen := make(map[string]bool, len(input.Symptoms))
	normalized := make([]string, 0, len(input.Symptoms))
	var unknown []string
	for _, raw := range input.Symptoms {
		s := strings.ToLower(strings.TrimSpace(raw))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		if !p.vocab[s] {
			unknown = append(unknown, s)
			continue
		}
		normalized = append(normalized, s)
	}
	if len(unknown) > 0 {
		return nil, validationErrorf("unknown symptoms: %s", strings.Join(unknown, ", "))
	}
	if len(normalized) == 0 {
		return nil, validationErrorf("at least one symptom is required")
	}
	return normalized, nil
}

// encode builds the feature vector column by column, mirroring the
// training-time transform: one-hot gender (unseen category encodes as
// all zeros), everything else standardized with the fitted scaler.
func (p *Predictor) encode(input models.CaseInput, symptoms []string) []float64 {
	gender := strings.ToLower(strings.TrimSpace(input.Gender))
	present := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		present[s] = true
	}

	vector := make([]float64, len(p.bundle.FeatureColumns))
	for i, col := range p.bundle.FeatureColumns {
		var value float64
		switch {
		case strings.HasPrefix(col, "gender_"):
			if strings.TrimPrefix(col, "gender_") == gender {
				value = 1
			}
			vector[i] = value
			continue
		case col == "age":
			value = float64(input.Age)
		case col == durationColumn:
			value = float64(input.DurationDays)
		case col == "smoking":
			value = boolToFloat(input.Lifestyle.Smoking)
		case col == "alcohol":
			value = boolToFloat(input.Lifestyle.Alcohol)
		case strings.HasPrefix(col, "symptom_"):
			value = boolToFloat(present[strings.TrimPrefix(col, "symptom_")])
		}
		if params, ok := p.bundle.Scaler[col]; ok && params.Std > 0 {
			value = (value - params.Mean) / params.Std
		}
		vector[i] = value
	}
	return vector
}

func (p *Predictor) softmax(vector []float64) []float64 {
	scores := make([]float64, len(p.bundle.Classes))
	for i := range p.bundle.Classes {
		score := p.bundle.Intercepts[i]
		for j, coef := range p.bundle.Coefficients[i] {
			score += coef * vector[j]
		}
		scores[i] = score
	}

	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	for i, s := range scores {
		scores[i] = math.Exp(s - max)
		sum += scores[i]
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

// importantSymptoms orders the submitted symptoms by their global
// importance weight and pads from the global ranking when fewer than
// three were submitted. The selection depends only on trained weights,
// not on this request's probabilities.
func (p *Predictor) importantSymptoms(symptoms []string) []string {
	ordered := make([]string, len(symptoms))
	copy(ordered, symptoms)
	sort.Slice(ordered, func(i, j int) bool {
		wi := p.bundle.SymptomImportance[ordered[i]]
		wj := p.bundle.SymptomImportance[ordered[j]]
		if wi != wj {
			return wi > wj
		}
		return ordered[i] < ordered[j]
	})
	if len(ordered) > topImportant {
		ordered = ordered[:topImportant]
	}

	if len(ordered) < topImportant {
		seen := make(map[string]bool, len(ordered))
		for _, s := range ordered {
			seen[s] = true
		}
		for _, entry := range p.ranked {
			if len(ordered) == topImportant {
				break
			}
			if !seen[entry.Symptom] {
				ordered = append(ordered, entry.Symptom)
				seen[entry.Symptom] = true
			}
		}
	}
	return ordered
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
