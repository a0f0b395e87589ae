package predictor

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"clinsight/internal/artifact"
	"clinsight/internal/models"
)

func testBundle() *artifact.Bundle {
	return &artifact.Bundle{
		BestModel: "LogisticRegression",
		Classes:   []string{"Common Cold", "Influenza", "Migraine"},
		Symptoms:  []string{"fever", "cough", "headache", "fatigue", "sore_throat"},
		FeatureColumns: []string{
			"gender_female", "gender_male",
			"age",
			"symptom_cough", "symptom_fatigue", "symptom_fever",
			"symptom_headache", "symptom_sore_throat",
			"symptom_duration", "smoking", "alcohol",
		},
		Scaler: map[string]artifact.ScalerParams{
			"age":                 {Mean: 0, Std: 1},
			"symptom_cough":       {Mean: 0, Std: 1},
			"symptom_fatigue":     {Mean: 0, Std: 1},
			"symptom_fever":       {Mean: 0, Std: 1},
			"symptom_headache":    {Mean: 0, Std: 1},
			"symptom_sore_throat": {Mean: 0, Std: 1},
			"symptom_duration":    {Mean: 0, Std: 1},
			"smoking":             {Mean: 0, Std: 1},
			"alcohol":             {Mean: 0, Std: 1},
		},
		Coefficients: [][]float64{
			// cough and sore throat point at a cold
			{0, 0, 0, 1.0, 0, 0.2, 0, 2.0, 0, 0, 0},
			// fever plus cough point at the flu
			{0, 0, 0, 1.5, 0.5, 2.0, 0, 0, 0, 0, 0},
			// headache dominates migraine
			{0, 0, 0, 0, 0, 0, 3.0, 0, 0, 0, 0},
		},
		Intercepts: []float64{0, 0, 0},
		SymptomImportance: map[string]float64{
			"fever":       0.30,
			"headache":    0.25,
			"cough":       0.20,
			"sore_throat": 0.15,
			"fatigue":     0.10,
		},
		Metrics: map[string]models.ModelScores{
			"LogisticRegression": {Accuracy: 0.91, Precision: 0.90, Recall: 0.89, F1Score: 0.90},
			"RandomForest":       {Accuracy: 0.88, Precision: 0.87, Recall: 0.86, F1Score: 0.87},
		},
	}
}

func testPredictor() *Predictor {
	return New(testBundle(), zerolog.Nop())
}

func validInput() models.CaseInput {
	return models.CaseInput{
		Age:          28,
		Gender:       "female",
		Symptoms:     []string{"fever", "cough"},
		DurationDays: 2,
	}
}

func TestPredictRanking(t *testing.T) {
	result, err := testPredictor().Predict(validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Predictions) == 0 || len(result.Predictions) > 3 {
		t.Fatalf("expected 1-3 predictions, got %d", len(result.Predictions))
	}
	if result.Predictions[0].Disease != "Influenza" {
		t.Fatalf("expected Influenza on top for fever+cough, got %+v", result.Predictions)
	}
	var sum float64
	for i, p := range result.Predictions {
		if p.Confidence < 0 || p.Confidence > 1 {
			t.Fatalf("confidence out of range: %+v", p)
		}
		if i > 0 && p.Confidence > result.Predictions[i-1].Confidence {
			t.Fatalf("predictions not sorted descending: %+v", result.Predictions)
		}
		sum += p.Confidence
	}
	if sum > 1.0001 {
		t.Fatalf("top-3 confidences exceed 1: %v", sum)
	}
	if result.ModelUsed != "LogisticRegression" {
		t.Fatalf("unexpected model_used %q", result.ModelUsed)
	}
}

func TestPredictDeterministic(t *testing.T) {
	p := testPredictor()
	first, err := p.Predict(validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := p.Predict(validInput())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("prediction not deterministic:\nfirst %+v\nagain %+v", first, again)
		}
	}
}

func TestPredictValidation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*models.CaseInput)
		wantMsg string
	}{
		{"age too high", func(in *models.CaseInput) { in.Age = 150 }, "age"},
		{"age too low", func(in *models.CaseInput) { in.Age = 0 }, "age"},
		{"bad gender", func(in *models.CaseInput) { in.Gender = "unknown" }, "gender"},
		{"duration too long", func(in *models.CaseInput) { in.DurationDays = 90 }, "duration_days"},
		{"duration zero", func(in *models.CaseInput) { in.DurationDays = 0 }, "duration_days"},
		{"no symptoms", func(in *models.CaseInput) { in.Symptoms = nil }, "at least one symptom"},
		{"blank symptoms", func(in *models.CaseInput) { in.Symptoms = []string{"  ", ""} }, "at least one symptom"},
		{"unknown symptom", func(in *models.CaseInput) { in.Symptoms = []string{"fever", "glowing"} }, "unknown symptoms: glowing"},
	}

	p := testPredictor()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := p.Predict(in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

// Every advertised symptom must be accepted and anything else rejected,
// so the /metadata vocabulary and the /predict encoding stay in lockstep.
func TestVocabularyRoundTrip(t *testing.T) {
	p := testPredictor()
	for _, s := range p.Symptoms() {
		in := validInput()
		in.Symptoms = []string{s}
		if _, err := p.Predict(in); err != nil {
			t.Fatalf("vocabulary symptom %q rejected: %v", s, err)
		}
	}

	in := validInput()
	in.Symptoms = []string{"not_a_symptom"}
	if _, err := p.Predict(in); err == nil || !IsValidationError(err) {
		t.Fatalf("expected rejection of unknown symptom, got %v", err)
	}
}

func TestSymptomNormalization(t *testing.T) {
	p := testPredictor()
	in := validInput()
	in.Symptoms = []string{" Fever ", "fever", "COUGH"}

	result, err := p.Predict(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.InputSummary.SymptomCount != 2 {
		t.Fatalf("expected dedupe to 2 symptoms, got %d", result.InputSummary.SymptomCount)
	}
}

func TestImportantSymptoms(t *testing.T) {
	p := testPredictor()

	in := validInput()
	in.Symptoms = []string{"fatigue", "headache", "cough", "fever"}
	result, err := p.Predict(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"fever", "headache", "cough"}
	if !reflect.DeepEqual(result.ImportantSymptoms, want) {
		t.Fatalf("expected %v, got %v", want, result.ImportantSymptoms)
	}

	// Fewer than three submitted: pad from the global ranking.
	in.Symptoms = []string{"fatigue"}
	result, err = p.Predict(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want = []string{"fatigue", "fever", "headache"}
	if !reflect.DeepEqual(result.ImportantSymptoms, want) {
		t.Fatalf("expected %v, got %v", want, result.ImportantSymptoms)
	}
}

func TestImportanceRanking(t *testing.T) {
	p := testPredictor()

	top := p.Importance(3)
	if len(top) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(top))
	}
	if top[0].Symptom != "fever" || top[1].Symptom != "headache" || top[2].Symptom != "cough" {
		t.Fatalf("unexpected ranking: %+v", top)
	}

	all := p.Importance(100)
	if len(all) != 5 {
		t.Fatalf("expected ranking capped at vocabulary size, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Importance > all[i-1].Importance {
			t.Fatalf("importance not sorted descending: %+v", all)
		}
	}
}

// The encoding must mirror the training transform exactly: one-hot
// gender left unscaled, every other column standardized.
func TestEncode(t *testing.T) {
	bundle := testBundle()
	bundle.Scaler["age"] = artifact.ScalerParams{Mean: 40, Std: 20}
	bundle.Scaler["symptom_duration"] = artifact.ScalerParams{Mean: 5, Std: 2}
	p := New(bundle, zerolog.Nop())

	in := models.CaseInput{
		Age:          60,
		Gender:       "male",
		Symptoms:     []string{"fever"},
		DurationDays: 3,
		Lifestyle:    models.Lifestyle{Smoking: true},
	}
	vector := p.encode(in, []string{"fever"})

	want := map[string]float64{
		"gender_female":    0,
		"gender_male":      1,
		"age":              1, // (60-40)/20
		"symptom_fever":    1,
		"symptom_cough":    0,
		"symptom_duration": -1, // (3-5)/2
		"smoking":          1,
		"alcohol":          0,
	}
	for i, col := range bundle.FeatureColumns {
		expected, ok := want[col]
		if !ok {
			continue
		}
		if math.Abs(vector[i]-expected) > 1e-9 {
			t.Fatalf("column %s: expected %v, got %v", col, expected, vector[i])
		}
	}
}

func TestGenderOtherEncodesAsZeros(t *testing.T) {
	p := testPredictor()
	in := validInput()
	in.Gender = "other"

	vector := p.encode(in, []string{"fever"})
	for i, col := range p.bundle.FeatureColumns {
		if strings.HasPrefix(col, "gender_") && vector[i] != 0 {
			t.Fatalf("expected zero gender encoding for 'other', column %s = %v", col, vector[i])
		}
	}
	if _, err := p.Predict(in); err != nil {
		t.Fatalf("gender 'other' should be accepted: %v", err)
	}
}

func TestSoftmaxSumsToOne(t *testing.T) {
	p := testPredictor()
	probs := p.softmax(p.encode(validInput(), []string{"fever", "cough"}))

	var sum float64
	for _, v := range probs {
		if v <= 0 || v >= 1 {
			t.Fatalf("probability out of (0,1): %v", probs)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
}
