package service

import "math"

// ScoreInput carries the signals the accuracy scorer combines: the model's
// self-assessment when it reported one, which expected fields the parsed
// output populated, and whether related objects were actually retrievable.
type ScoreInput struct {
	ModelConfidence   float64 // <= 0 means the model reported none
	HasSummary        bool
	HasReasoning      bool
	HasNextActions    bool
	HasRequiredTeams  bool
	HasResolutionTime bool
	RelatedRetrieved  bool
}

// Score never fails; on sparse input it degrades to a lower confidence.
// Returned confidence is in [0,1], accuracy in [0,100] with
// accuracy == round1(confidence * completeness * 100). Missing related
// objects discount the confidence itself, so an analysis run without its
// related context always scores strictly below a full one.
func Score(in ScoreInput) (confidence float64, accuracy float64) {
	confidence = in.ModelConfidence
	if confidence <= 0 {
		confidence = heuristicConfidence(in)
	}
	if confidence > 1 {
		confidence = 1
	}
	if !in.RelatedRetrieved {
		confidence *= 0.85
	}

	accuracy = math.Round(confidence*completenessFactor(in)*100*10) / 10
	return confidence, accuracy
}

// completenessFactor multiplies a fixed penalty per missing optional field.
// It stays in (0, 1].
func completenessFactor(in ScoreInput) float64 {
	factor := 1.0
	if !in.HasNextActions {
		factor *= 0.8
	}
	if !in.HasRequiredTeams {
		factor *= 0.9
	}
	if !in.HasResolutionTime {
		factor *= 0.95
	}
	return factor
}

// heuristicConfidence estimates confidence from the fraction of expected
// fields the model populated, capped below a self-reported score's ceiling.
func heuristicConfidence(in ScoreInput) float64 {
	fields := []bool{in.HasSummary, in.HasReasoning, in.HasNextActions, in.HasRequiredTeams, in.HasResolutionTime}
	populated := 0
	for _, ok := range fields {
		if ok {
			populated++
		}
	}
	return 0.3 + 0.6*float64(populated)/float64(len(fields))
}
