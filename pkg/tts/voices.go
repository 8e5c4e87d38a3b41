package tts

import (
	"math"
	"strings"
)

const (
	MinRate  = 0.8
	MaxRate  = 2.0
	RateStep = 0.1
)

// RateOptions lists the selectable speaking rates, from MinRate to MaxRate.
func RateOptions() []float64 {
	steps := int(math.Round((MaxRate - MinRate) / RateStep))
	rates := make([]float64, 0, steps+1)
	for i := 0; i <= steps; i++ {
		rates = append(rates, math.Round((MinRate+float64(i)*RateStep)*10)/10)
	}
	return rates
}

// ValidRate reports whether rate is one of RateOptions.
func ValidRate(rate float64) bool {
	for _, r := range RateOptions() {
		if math.Abs(r-rate) < 1e-9 {
			return true
		}
	}
	return false
}

// StepRate moves rate by steps RateSteps, staying within MinRate and MaxRate.
func StepRate(rate float64, steps int) float64 {
	next := math.Round((rate+float64(steps)*RateStep)*10) / 10
	return math.Max(MinRate, math.Min(MaxRate, next))
}

// FilterVoices keeps the voices whose name or language contains filter,
// ignoring case. An empty filter keeps everything.
func FilterVoices(voices []Voice, filter string) []Voice {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return voices
	}

	filtered := make([]Voice, 0, len(voices))
	for _, v := range voices {
		if strings.Contains(strings.ToLower(v.Name), filter) ||
			strings.Contains(strings.ToLower(v.Language), filter) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// SelectVoice picks the voice to speak with from the voices matching filter:
// the one named preferred if it's among them, otherwise the first. It reports
// false when nothing matches.
func SelectVoice(voices []Voice, filter, preferred string) (Voice, bool) {
	filtered := FilterVoices(voices, filter)
	if len(filtered) == 0 {
		return Voice{}, false
	}
	if preferred != "" {
		for _, v := range filtered {
			if v.Name == preferred {
				return v, true
			}
		}
	}
	return filtered[0], true
}
