package scoring

import (
	"errors"
	"fmt"
)

// Dimension keys expected in a scoring model response.
const (
	ThemeAndIntent     = "theme_and_intent"
	LanguageExpression = "language_expression"
	Structure          = "structure"
	ContentSelection   = "content_selection"
	EmotionAndContent  = "emotion_and_content"
)

// MaxTotal is the sum of every dimension maximum.
const MaxTotal = 100.0

// DimensionSpec describes one scoring criterion.
type DimensionSpec struct {
	Key string
	Max float64
}

// Specs lists the five dimensions in presentation order.
var Specs = []DimensionSpec{
	{Key: ThemeAndIntent, Max: 20},
	{Key: LanguageExpression, Max: 25},
	{Key: Structure, Max: 15},
	{Key: ContentSelection, Max: 15},
	{Key: EmotionAndContent, Max: 25},
}

// ErrInvalidDimensions marks a scoring payload that failed validation.
var ErrInvalidDimensions = errors.New("invalid dimension scores")

// ValidationError describes the first dimension that failed validation.
type ValidationError struct {
	Dimension string
	Value     interface{}
	Max       float64
	Reason    string
	Raw       string
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("dimension %s: %s", e.Dimension, e.Reason)
	}
	return fmt.Sprintf("dimension %s: %s (got %v, max %v)", e.Dimension, e.Reason, e.Value, e.Max)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDimensions
}

// Dimensions is a validated set of five dimension scores.
type Dimensions struct {
	ThemeAndIntent     float64 `json:"theme_and_intent"`
	LanguageExpression float64 `json:"language_expression"`
	Structure          float64 `json:"structure"`
	ContentSelection   float64 `json:"content_selection"`
	EmotionAndContent  float64 `json:"emotion_and_content"`
}

// Sum returns the dimension total on the 100-point basis.
func (d Dimensions) Sum() float64 {
	return d.ThemeAndIntent + d.LanguageExpression + d.Structure + d.ContentSelection + d.EmotionAndContent
}

// Breakdown returns each dimension with its maximum, keyed by dimension.
func (d Dimensions) Breakdown() map[string]DimensionScore {
	values := d.values()
	out := make(map[string]DimensionScore, len(Specs))
	for _, spec := range Specs {
		out[spec.Key] = DimensionScore{Score: values[spec.Key], MaxScore: spec.Max}
	}
	return out
}

func (d Dimensions) values() map[string]float64 {
	return map[string]float64{
		ThemeAndIntent:     d.ThemeAndIntent,
		LanguageExpression: d.LanguageExpression,
		Structure:          d.Structure,
		ContentSelection:   d.ContentSelection,
		EmotionAndContent:  d.EmotionAndContent,
	}
}

// DimensionScore pairs an awarded score with its ceiling.
type DimensionScore struct {
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
}

// ParseDimensions validates a decoded model response. Every dimension must be
// present as a number within [0, max]; nothing is clamped or coerced. Keys
// outside the five dimensions are ignored.
func ParseDimensions(payload map[string]interface{}) (Dimensions, error) {
	values := make(map[string]float64, len(Specs))
	for _, spec := range Specs {
		raw, ok := payload[spec.Key]
		if !ok || raw == nil {
			return Dimensions{}, &ValidationError{Dimension: spec.Key, Max: spec.Max, Reason: "missing"}
		}
		value, ok := toFloat(raw)
		if !ok {
			return Dimensions{}, &ValidationError{Dimension: spec.Key, Value: raw, Max: spec.Max, Reason: "not a number"}
		}
		if value < 0 || value > spec.Max {
			return Dimensions{}, &ValidationError{Dimension: spec.Key, Value: value, Max: spec.Max, Reason: "out of range"}
		}
		values[spec.Key] = value
	}

	return Dimensions{
		ThemeAndIntent:     values[ThemeAndIntent],
		LanguageExpression: values[LanguageExpression],
		Structure:          values[Structure],
		ContentSelection:   values[ContentSelection],
		EmotionAndContent:  values[EmotionAndContent],
	}, nil
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case interface{ Float64() (float64, error) }:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
