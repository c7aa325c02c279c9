package nlu

import (
	"regexp"
	"strconv"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
)

const (
	minPartySize = 1
	maxPartySize = 10
	maxChildAge  = 17
)

var numberWords = map[string]int{
	"um": 1, "uma": 1,
	"dois": 2, "duas": 2,
	"tres": 3, "quatro": 4, "cinco": 5,
	"seis": 6, "sete": 7, "oito": 8, "nove": 9, "dez": 10,
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

const countWord = `\d{1,3}|um|uma|dois|duas|tres|quatro|cinco|seis|sete|oito|nove|dez|one|two|three|four|five|six|seven|eight|nine|ten`

var (
	reAdults   = regexp.MustCompile(`\b(` + countWord + `)\s+(?:adultos?|pessoas?|adults?|people)\b`)
	reChildren = regexp.MustCompile(`\b(` + countWord + `)\s+(?:criancas?|filhos?|children|kids?)\b`)
	reAges     = regexp.MustCompile(`\b(?:de\s+)?((?:\d{1,2}(?:\s*,\s*|\s+e\s+)?)+)\s*anos\b`)
	reAgeList  = regexp.MustCompile(`\d{1,2}`)
)

// partyFacts is what one pass over the text yields about who is staying.
type partyFacts struct {
	adults       *contractx.IntEntity
	adultsReason contractx.ReasonCode
	childCount   *contractx.IntEntity
	childAges    *contractx.AgesEntity
	childReason  contractx.ReasonCode
}

// parseParty extracts adult counts and child ages. Out-of-range values yield
// a reason code rather than a clamped guess. Bare age lists ("4 e 7 anos")
// only count when children were mentioned or their ages were just asked for,
// so "tenho 30 anos" does not read as a child age.
func parseParty(text string, expectAges bool) partyFacts {
	var facts partyFacts

	if m := reAdults.FindStringSubmatch(text); m != nil {
		n, ok := parseCount(m[1])
		if !ok || n < minPartySize || n > maxPartySize {
			facts.adultsReason = contractx.ReasonOutOfRange
		} else {
			facts.adults = &contractx.IntEntity{Value: n, Confidence: 0.9}
		}
	}

	if m := reChildren.FindStringSubmatch(text); m != nil {
		n, ok := parseCount(m[1])
		if !ok || n < 0 || n > maxPartySize {
			facts.childReason = contractx.ReasonOutOfRange
			return facts
		}
		facts.childCount = &contractx.IntEntity{Value: n, Confidence: 0.9}
		if n == 0 {
			facts.childAges = &contractx.AgesEntity{Ages: []int{}, Confidence: 0.9}
			return facts
		}
	}

	if !expectAges && facts.childCount == nil {
		return facts
	}

	if m := reAges.FindStringSubmatch(text); m != nil {
		var ages []int
		for _, raw := range reAgeList.FindAllString(m[1], -1) {
			age, _ := strconv.Atoi(raw)
			if age > maxChildAge {
				facts.childReason = contractx.ReasonOutOfRange
				return facts
			}
			ages = append(ages, age)
		}
		if len(ages) > 0 {
			facts.childAges = &contractx.AgesEntity{Ages: ages, Confidence: 0.9}
		}
	}
	return facts
}

func parseCount(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	n, ok := numberWords[raw]
	return n, ok
}
