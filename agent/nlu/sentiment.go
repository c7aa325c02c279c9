package nlu

import "strings"

// Lexicon scores are in [-1, 1]. Stems are matched against the normalized
// (lowercased, accent-stripped) text.
var sentimentStems = map[string]float64{
	"otim":       0.8,
	"excelente":  0.8,
	"maravilh":   0.9,
	"perfeit":    0.8,
	"adorei":     0.9,
	"amei":       0.9,
	"obrigad":    0.5,
	"legal":      0.4,
	"bom":        0.4,
	"boa":        0.4,
	"great":      0.7,
	"perfect":    0.8,
	"thanks":     0.5,
	"pessim":     -0.9,
	"horrivel":   -0.9,
	"terrivel":   -0.9,
	"absurd":     -0.8,
	"ridicul":    -0.8,
	"inaceitavel": -0.9,
	"decepc":     -0.8,
	"ruim":       -0.6,
	"demora":     -0.5,
	"frustr":     -0.7,
	"reclam":     -0.6,
	"nunca mais": -0.8,
	"cancelar":   -0.3,
	"awful":      -0.9,
	"terrible":   -0.9,
	"worst":      -0.9,
}

// scoreSentiment averages the lexicon hits found in the text. No hits means
// a neutral zero.
func scoreSentiment(text string) float64 {
	var sum float64
	var hits int
	for stem, score := range sentimentStems {
		if strings.Contains(text, stem) {
			sum += score
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	avg := sum / float64(hits)
	if avg > 1 {
		return 1
	}
	if avg < -1 {
		return -1
	}
	return avg
}

var languageMarkers = map[string][]string{
	"pt": {"voce", "vocês", "obrigad", "quero", "gostaria", "quanto", "diaria", "reserva", "crianca", "noite", "ola", "bom dia", "boa tarde", "nao", "sim,"},
	"en": {" the ", " is ", "would like", "how much", "thank", "night", "booking", "available", "hello", "price", "room for"},
	"es": {"quisiera", "cuanto cuesta", "habitacion", "gracias", "hola", "ninos", "por favor", "precio de", "noches para"},
}

// detectLanguage picks the language with the most marker hits, defaulting to
// Portuguese for short or ambiguous messages.
func detectLanguage(text string) string {
	best := "pt"
	bestHits := 0
	for _, lang := range []string{"pt", "en", "es"} {
		hits := 0
		for _, marker := range languageMarkers[lang] {
			if strings.Contains(text, marker) {
				hits++
			}
		}
		if hits > bestHits {
			best = lang
			bestHits = hits
		}
	}
	return best
}
