package nlu

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	contractx "github.com/hotelpassarim/concierge/agent/contract"
	"github.com/hotelpassarim/concierge/agent/pricing"
)

var monthsPT = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

const monthAlternation = `janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro`

var (
	reRangeNamedMonth = regexp.MustCompile(`\bde\s+(\d{1,2})\s+(?:a|ate)\s+(\d{1,2})\s+de\s+(` + monthAlternation + `)(?:\s+de\s+(\d{4}))?`)
	reRangeNumeric    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\s*(?:a|ate|-)\s*(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
	reDayNamedMonth   = regexp.MustCompile(`\b(\d{1,2})\s+de\s+(` + monthAlternation + `)(?:\s+de\s+(\d{4}))?`)
	reDayNumeric      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?`)
	reNights          = regexp.MustCompile(`\b(\d{1,2})\s+noites?\b`)
	reOneNight        = regexp.MustCompile(`\buma\s+noite\b`)
	reNextWeekday     = regexp.MustCompile(`\bproxim[oa]\s+(segunda|terca|quarta|quinta|sexta|sabado|domingo)\b`)
)

var weekdaysPT = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

var holidayAliases = map[string]string{
	"pascoa":    "pascoa",
	"natal":     "natal",
	"ano novo":  "ano_novo",
	"reveillon": "ano_novo",
	"virada":    "ano_novo",
}

// dateFacts is what one pass over the text yields about the stay window.
type dateFacts struct {
	checkIn  *contractx.DateEntity
	checkOut *contractx.DateEntity
	nights   *contractx.IntEntity
	reason   contractx.ReasonCode
}

// parseDates resolves every supported date expression against the receive
// time. Year-less dates resolve to their next future occurrence; impossible
// calendar dates yield a reason code instead of a guess.
func parseDates(text string, now time.Time, rates *pricing.RateConfig) dateFacts {
	loc := time.UTC
	if rates != nil {
		loc = rates.Location()
	}
	today := civilDay(now, loc)

	if m := reRangeNamedMonth.FindStringSubmatch(text); m != nil {
		month := monthsPT[m[3]]
		inDay, _ := strconv.Atoi(m[1])
		outDay, _ := strconv.Atoi(m[2])
		year := 0
		if m[4] != "" {
			year, _ = strconv.Atoi(m[4])
		}
		in, okIn := resolveDay(inDay, month, year, today)
		out, okOut := resolveDay(outDay, month, year, today)
		if !okIn || !okOut {
			return dateFacts{reason: contractx.ReasonAmbiguousDate}
		}
		if !out.After(in) {
			out = out.AddDate(0, 1, 0)
		}
		return dateFacts{
			checkIn:  explicitDate(in, 0.95),
			checkOut: explicitDate(out, 0.95),
			nights:   nightsFromDates(text),
		}
	}

	if m := reRangeNumeric.FindStringSubmatch(text); m != nil {
		in, okIn := resolveNumeric(m[1], m[2], m[3], today)
		out, okOut := resolveNumeric(m[4], m[5], m[6], today)
		if !okIn || !okOut {
			return dateFacts{reason: contractx.ReasonAmbiguousDate}
		}
		if !out.After(in) {
			return dateFacts{reason: contractx.ReasonAmbiguousDate}
		}
		return dateFacts{
			checkIn:  explicitDate(in, 0.95),
			checkOut: explicitDate(out, 0.95),
		}
	}

	if key, ok := holidayMention(text); ok && rates != nil {
		if ov, found := rates.HolidayByKey(key, today); found {
			return dateFacts{
				checkIn:  &contractx.DateEntity{Date: ov.Start, Source: contractx.DateSourceHoliday, Confidence: 0.9},
				checkOut: &contractx.DateEntity{Date: ov.End, Source: contractx.DateSourceHoliday, Confidence: 0.9},
			}
		}
	}

	if facts, ok := relativeDate(text, today); ok {
		facts.nights = nightsFromDates(text)
		return facts
	}

	if m := reDayNamedMonth.FindStringSubmatch(text); m != nil {
		dayNum, _ := strconv.Atoi(m[1])
		year := 0
		if m[3] != "" {
			year, _ = strconv.Atoi(m[3])
		}
		d, ok := resolveDay(dayNum, monthsPT[m[2]], year, today)
		if !ok {
			return dateFacts{reason: contractx.ReasonAmbiguousDate}
		}
		return dateFacts{checkIn: explicitDate(d, 0.9), nights: nightsFromDates(text)}
	}

	if m := reDayNumeric.FindStringSubmatch(text); m != nil {
		d, ok := resolveNumeric(m[1], m[2], m[3], today)
		if !ok {
			return dateFacts{reason: contractx.ReasonAmbiguousDate}
		}
		return dateFacts{checkIn: explicitDate(d, 0.9), nights: nightsFromDates(text)}
	}

	return dateFacts{nights: nightsFromDates(text)}
}

func nightsFromDates(text string) *contractx.IntEntity {
	if m := reNights.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 {
			return &contractx.IntEntity{Value: n, Confidence: 0.9}
		}
	}
	if reOneNight.MatchString(text) {
		return &contractx.IntEntity{Value: 1, Confidence: 0.9}
	}
	return nil
}

func relativeDate(text string, today time.Time) (dateFacts, bool) {
	switch {
	case strings.Contains(text, "depois de amanha"):
		return dateFacts{checkIn: relativeEntity(today.AddDate(0, 0, 2))}, true
	case strings.Contains(text, "amanha"):
		return dateFacts{checkIn: relativeEntity(today.AddDate(0, 0, 1))}, true
	case strings.Contains(text, "hoje"):
		return dateFacts{checkIn: relativeEntity(today)}, true
	case strings.Contains(text, "fim de semana"):
		friday := nextWeekday(today, time.Friday)
		return dateFacts{
			checkIn:  relativeEntity(friday),
			checkOut: relativeEntity(friday.AddDate(0, 0, 2)),
		}, true
	}
	if m := reNextWeekday.FindStringSubmatch(text); m != nil {
		return dateFacts{checkIn: relativeEntity(nextWeekday(today, weekdaysPT[m[1]]))}, true
	}
	return dateFacts{}, false
}

func holidayMention(text string) (string, bool) {
	for alias, key := range holidayAliases {
		if strings.Contains(text, alias) {
			return key, true
		}
	}
	return "", false
}

func explicitDate(d time.Time, conf float64) *contractx.DateEntity {
	return &contractx.DateEntity{Date: d, Source: contractx.DateSourceExplicit, Confidence: conf}
}

func relativeEntity(d time.Time) *contractx.DateEntity {
	return &contractx.DateEntity{Date: d, Source: contractx.DateSourceRelative, Confidence: 0.75}
}

// resolveDay builds a civil date, rolling year-less dates forward to the next
// occurrence not before today. Returns false for impossible dates.
func resolveDay(dayNum int, month time.Month, year int, today time.Time) (time.Time, bool) {
	if year != 0 {
		d := time.Date(year, month, dayNum, 0, 0, 0, 0, time.UTC)
		if d.Day() != dayNum || d.Month() != month {
			return time.Time{}, false
		}
		return d, true
	}
	d := time.Date(today.Year(), month, dayNum, 0, 0, 0, 0, time.UTC)
	if d.Day() != dayNum || d.Month() != month {
		return time.Time{}, false
	}
	if d.Before(today) {
		d = d.AddDate(1, 0, 0)
	}
	return d, true
}

func resolveNumeric(dayRaw, monthRaw, yearRaw string, today time.Time) (time.Time, bool) {
	dayNum, _ := strconv.Atoi(dayRaw)
	monthNum, _ := strconv.Atoi(monthRaw)
	if monthNum < 1 || monthNum > 12 {
		return time.Time{}, false
	}
	year := 0
	if yearRaw != "" {
		year, _ = strconv.Atoi(yearRaw)
		if year < 100 {
			year += 2000
		}
	}
	return resolveDay(dayNum, time.Month(monthNum), year, today)
}

func nextWeekday(from time.Time, wd time.Weekday) time.Time {
	d := from.AddDate(0, 0, 1)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// civilDay is the calendar day of t in loc, represented as a UTC midnight so
// it compares cleanly with the parsed stay dates.
func civilDay(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
}
