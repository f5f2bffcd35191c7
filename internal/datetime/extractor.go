// Package datetime extracts dates and times from Spanish free text
package datetime

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	instantLayout = "2006-01-02T15:04:05"
	dateLayout    = "2006-01-02"
)

var (
	reDMY      = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{4})\b`)
	reYMD      = regexp.MustCompile(`\b(\d{4})[-/](\d{1,2})[-/](\d{1,2})\b`)
	reLongDate = regexp.MustCompile(`\b(\d{1,2})\s+de\s+([a-z]+)(?:\s+(?:de|del)\s+(\d{4}))?`)
	reRelative = regexp.MustCompile(`\bpasado\s+mañana|\bmañana|\bhoy\b`)
	reWeekday  = regexp.MustCompile(`\b(lunes|martes|miercoles|miércoles|jueves|viernes|sabado|sábado|domingo)\b`)
	reClock    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)
	reMeridiem = regexp.MustCompile(`\b(\d{1,2})\s*(am|pm|a\.m\.|p\.m\.)`)
	reAtHour   = regexp.MustCompile(`\ba\s+las?\s+(\d{1,2})\b`)
	reMidday   = regexp.MustCompile(`medio\s*d[ií]a`)
)

var (
	spanishMonth = map[string]time.Month{
		"enero": time.January, "febrero": time.February, "marzo": time.March,
		"abril": time.April, "mayo": time.May, "junio": time.June,
		"julio": time.July, "agosto": time.August, "septiembre": time.September,
		"setiembre": time.September, "octubre": time.October,
		"noviembre": time.November, "diciembre": time.December,
	}
	spanishWeekday = map[string]time.Weekday{
		"domingo": time.Sunday, "lunes": time.Monday, "martes": time.Tuesday,
		"miercoles": time.Wednesday, "miércoles": time.Wednesday, "jueves": time.Thursday,
		"viernes": time.Friday, "sabado": time.Saturday, "sábado": time.Saturday,
	}
)

// Extractor is a rule based datetime extractor. Results are ISO-8601:
// "2006-01-02T15:04:05" when a time was found, "2006-01-02" for a bare date.
type Extractor struct {
	loc *time.Location
	now func() time.Time
}

func NewExtractor(loc *time.Location) *Extractor {
	if loc == nil {
		loc = time.Local
	}
	return &Extractor{loc: loc, now: time.Now}
}

type match struct {
	pos int
	t   time.Time
}

type clock struct {
	pos          int
	hour, minute int
	second       int
}

func (e *Extractor) Extract(_ context.Context, text string) ([]string, error) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil, nil
	}
	today := e.today()

	dates, rejected := e.findDates(text, today)
	if rejected {
		// an impossible date like 31/02 is not replaced by today
		return nil, nil
	}
	clocks := findClocks(text)

	if len(dates) == 0 {
		if len(clocks) == 0 {
			return nil, nil
		}
		dates = []match{{t: today}}
	}

	var out []string
	if len(clocks) == 0 {
		for _, d := range dates {
			out = append(out, d.t.Format(dateLayout))
		}
		return out, nil
	}

	for i, d := range dates {
		c := clocks[min(i, len(clocks)-1)]
		out = append(out, at(d.t, c).Format(instantLayout))
	}
	// remaining times belong to the last date
	for _, c := range clocks[min(len(dates), len(clocks)):] {
		out = append(out, at(dates[len(dates)-1].t, c).Format(instantLayout))
	}
	return out, nil
}

func (e *Extractor) today() time.Time {
	y, m, d := e.now().In(e.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
}

func at(day time.Time, c clock) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.hour, c.minute, c.second, 0, day.Location())
}

// findDates prefers explicit dates; weekdays and hoy/mañana only count when none is given
func (e *Extractor) findDates(text string, today time.Time) ([]match, bool) {
	var dates []match
	var rejected bool
	add := func(pos int, y int, m time.Month, d int) {
		if t, ok := validDate(y, m, d, e.loc); ok {
			dates = append(dates, match{pos: pos, t: t})
		} else {
			rejected = true
		}
	}

	for _, idx := range reDMY.FindAllStringSubmatchIndex(text, -1) {
		d, _ := strconv.Atoi(text[idx[2]:idx[3]])
		m, _ := strconv.Atoi(text[idx[4]:idx[5]])
		y, _ := strconv.Atoi(text[idx[6]:idx[7]])
		add(idx[0], y, time.Month(m), d)
	}
	for _, idx := range reYMD.FindAllStringSubmatchIndex(text, -1) {
		y, _ := strconv.Atoi(text[idx[2]:idx[3]])
		m, _ := strconv.Atoi(text[idx[4]:idx[5]])
		d, _ := strconv.Atoi(text[idx[6]:idx[7]])
		add(idx[0], y, time.Month(m), d)
	}
	for _, idx := range reLongDate.FindAllStringSubmatchIndex(text, -1) {
		month, ok := spanishMonth[text[idx[4]:idx[5]]]
		if !ok {
			continue
		}
		d, _ := strconv.Atoi(text[idx[2]:idx[3]])
		y := today.Year()
		if idx[6] >= 0 {
			y, _ = strconv.Atoi(text[idx[6]:idx[7]])
		}
		add(idx[0], y, month, d)
	}
	if len(dates) > 0 {
		sort.SliceStable(dates, func(i, j int) bool { return dates[i].pos < dates[j].pos })
		return dedupe(dates), false
	}
	if rejected {
		return nil, true
	}

	for _, idx := range reRelative.FindAllStringIndex(text, -1) {
		word := text[idx[0]:idx[1]]
		switch {
		case word == "hoy":
			dates = append(dates, match{pos: idx[0], t: today})
		case strings.HasPrefix(word, "pasado"):
			dates = append(dates, match{pos: idx[0], t: today.AddDate(0, 0, 2)})
		default:
			// "en la mañana" / "por la mañana" is morning, not tomorrow
			if strings.HasSuffix(strings.TrimSpace(text[:idx[0]]), " la") || strings.TrimSpace(text[:idx[0]]) == "la" {
				continue
			}
			dates = append(dates, match{pos: idx[0], t: today.AddDate(0, 0, 1)})
		}
	}

	for _, idx := range reWeekday.FindAllStringIndex(text, -1) {
		wd := spanishWeekday[text[idx[0]:idx[1]]]
		// next occurrence strictly after today
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		dates = append(dates, match{pos: idx[0], t: today.AddDate(0, 0, delta)})
	}

	sort.SliceStable(dates, func(i, j int) bool { return dates[i].pos < dates[j].pos })
	return dedupe(dates), false
}

// dedupe drops consecutive mentions of the same day
func dedupe(dates []match) []match {
	var out []match
	for _, d := range dates {
		if len(out) > 0 && out[len(out)-1].t.Equal(d.t) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func validDate(y int, m time.Month, d int, loc *time.Location) (time.Time, bool) {
	if m < time.January || m > time.December || d < 1 || d > 31 {
		return time.Time{}, false
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	if t.Day() != d || t.Month() != m {
		return time.Time{}, false
	}
	return t, true
}

func findClocks(text string) []clock {
	var clocks []clock
	var spans [][2]int
	consumed := func(start, end int) bool {
		for _, sp := range spans {
			if start < sp[1] && sp[0] < end {
				return true
			}
		}
		return false
	}
	keep := func(c clock, ok bool, start, end int) {
		if ok {
			clocks = append(clocks, c)
			spans = append(spans, [2]int{start, end})
		}
	}

	for _, idx := range reClock.FindAllStringSubmatchIndex(text, -1) {
		h, _ := strconv.Atoi(text[idx[2]:idx[3]])
		mi, _ := strconv.Atoi(text[idx[4]:idx[5]])
		s := 0
		if idx[6] >= 0 {
			s, _ = strconv.Atoi(text[idx[6]:idx[7]])
		}
		var meridiem string
		if idx[8] >= 0 {
			meridiem = text[idx[8]:idx[9]]
		}
		c, ok := validClock(idx[0], h, mi, s, meridiem)
		keep(c, ok, idx[0], idx[1])
	}

	for _, idx := range reMeridiem.FindAllStringSubmatchIndex(text, -1) {
		if consumed(idx[0], idx[1]) {
			continue
		}
		h, _ := strconv.Atoi(text[idx[2]:idx[3]])
		c, ok := validClock(idx[0], h, 0, 0, text[idx[4]:idx[5]])
		keep(c, ok, idx[0], idx[1])
	}

	for _, idx := range reAtHour.FindAllStringSubmatchIndex(text, -1) {
		// "a las 3 pm" and "a las 3:30" are already covered
		if consumed(idx[2], idx[3]) {
			continue
		}
		h, _ := strconv.Atoi(text[idx[2]:idx[3]])
		// the salon works daytime; "a las 5" means 17:00
		if h >= 1 && h <= 7 {
			h += 12
		}
		c, ok := validClock(idx[2], h, 0, 0, "")
		keep(c, ok, idx[2], idx[3])
	}

	if loc := reMidday.FindStringIndex(text); loc != nil && !consumed(loc[0], loc[1]) {
		clocks = append(clocks, clock{pos: loc[0], hour: 12})
	}

	sort.SliceStable(clocks, func(i, j int) bool { return clocks[i].pos < clocks[j].pos })
	return clocks
}

func validClock(pos, h, m, s int, meridiem string) (clock, bool) {
	meridiem = strings.ReplaceAll(meridiem, ".", "")
	switch meridiem {
	case "am":
		if h < 1 || h > 12 {
			return clock{}, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return clock{}, false
		}
		if h != 12 {
			h += 12
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return clock{}, false
	}
	return clock{pos: pos, hour: h, minute: m, second: s}, true
}
