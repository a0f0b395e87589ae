// Package artifact loads the persisted model bundle and metrics report
// produced by the training pipeline. The service owns no training logic;
// its only contract with the trainer is being able to deserialize these
// two JSON files.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"clinsight/internal/models"
)

var (
	ErrMissing = errors.New("artifact not found")
	ErrInvalid = errors.New("artifact invalid")
)

// ScalerParams are the standardization parameters of one numeric column,
// fitted at training time.
type ScalerParams struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Bundle is the persisted best classifier plus its feature schema. The
// trainer exports whichever model won in multinomial-logistic form:
// one coefficient row per class over the transformed feature columns.
type Bundle struct {
	BestModel         string                        `json:"best_model"`
	Classes           []string                      `json:"classes"`
	Symptoms          []string                      `json:"symptoms"`
	FeatureColumns    []string                      `json:"feature_columns"`
	Scaler            map[string]ScalerParams       `json:"scaler"`
	Coefficients      [][]float64                   `json:"coefficients"`
	Intercepts        []float64                     `json:"intercepts"`
	SymptomImportance map[string]float64            `json:"symptom_importance"`
	Metrics           map[string]models.ModelScores `json:"metrics"`
}

// LoadBundle reads and validates the model bundle at path.
func LoadBundle(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run the trainer first)", ErrMissing, path)
		}
		return nil, fmt.Errorf("read bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalid, path, err)
	}
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	return &b, nil
}

// LoadMetricsReport reads the model-comparison report written alongside
// the bundle by the trainer.
func LoadMetricsReport(path string) (*models.ModelMetrics, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (run the trainer first)", ErrMissing, path)
		}
		return nil, fmt.Errorf("read metrics report: %w", err)
	}

	var report models.ModelMetrics
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalid, path, err)
	}
	if len(report.Results) == 0 {
		return nil, fmt.Errorf("%w: %s: empty results", ErrInvalid, path)
	}
	best, ok := report.Results[report.BestModel]
	if !ok {
		return nil, fmt.Errorf("%w: %s: best_model %q not in results", ErrInvalid, path, report.BestModel)
	}
	for name, scores := range report.Results {
		if scores.F1Score > best.F1Score {
			return nil, fmt.Errorf("%w: %s: %q outperforms best_model %q on f1", ErrInvalid, path, name, report.BestModel)
		}
	}
	return &report, nil
}

func (b *Bundle) validate() error {
	if b.BestModel == "" {
		return errors.New("best_model missing")
	}
	if len(b.Classes) == 0 {
		return errors.New("classes missing")
	}
	if len(b.Symptoms) == 0 {
		return errors.New("symptoms missing")
	}
	if len(b.FeatureColumns) == 0 {
		return errors.New("feature_columns missing")
	}
	if len(b.Coefficients) != len(b.Classes) {
		return fmt.Errorf("coefficients rows %d != classes %d", len(b.Coefficients), len(b.Classes))
	}
	for i, row := range b.Coefficients {
		if len(row) != len(b.FeatureColumns) {
			return fmt.Errorf("coefficients row %d has %d entries, want %d", i, len(row), len(b.FeatureColumns))
		}
	}
	if len(b.Intercepts) != len(b.Classes) {
		return fmt.Errorf("intercepts %d != classes %d", len(b.Intercepts), len(b.Classes))
	}

	// Vocabulary and encoded symptom columns must agree both ways,
	// otherwise /metadata and /predict would drift apart.
	vocab := make(map[string]bool, len(b.Symptoms))
	for _, s := range b.Symptoms {
		if vocab[s] {
			return fmt.Errorf("duplicate symptom %q", s)
		}
		vocab[s] = true
	}
	columns := make(map[string]bool, len(b.FeatureColumns))
	for _, col := range b.FeatureColumns {
		if columns[col] {
			return fmt.Errorf("duplicate feature column %q", col)
		}
		columns[col] = true
		if s, ok := strings.CutPrefix(col, "symptom_"); ok && col != "symptom_duration" {
			if !vocab[s] {
				return fmt.Errorf("feature column %q has no vocabulary entry", col)
			}
		}
	}
	for _, s := range b.Symptoms {
		if !columns["symptom_"+s] {
			return fmt.Errorf("symptom %q has no feature column", s)
		}
	}

	if len(b.Metrics) > 0 {
		best, ok := b.Metrics[b.BestModel]
		if !ok {
			return fmt.Errorf("best_model %q not in metrics", b.BestModel)
		}
		for name, scores := range b.Metrics {
			if scores.F1Score > best.F1Score {
				return fmt.Errorf("metrics: %q outperforms best_model %q on f1", name, b.BestModel)
			}
		}
	}
	return nil
}
