package tts

import (
	"strconv"
	"strings"
)

var abbreviations = []struct{ from, to string }{
	{"Mr.", "Mister"}, {"Mrs.", "Misses"}, {"Ms.", "Miss"}, {"Dr.", "Doctor"},
	{"Prof.", "Professor"}, {"Jr.", "Junior"}, {"Sr.", "Senior"}, {"vs.", "versus"},
	{"etc.", "etcetera"}, {"e.g.", "for example"}, {"i.e.", "that is"},
	{"approx.", "approximately"}, {"govt.", "government"}, {"dept.", "department"},
	{"st.", "street"}, {"ave.", "avenue"}, {"blvd.", "boulevard"}, {"no.", "number"},
	{"vol.", "volume"}, {"pg.", "page"}, {"pp.", "pages"}, {"hrs.", "hours"},
	{"mins.", "minutes"}, {"secs.", "seconds"}, {"lb.", "pounds"}, {"lbs.", "pounds"},
	{"oz.", "ounces"}, {"ft.", "feet"}, {"in.", "inches"}, {"yd.", "yards"},
	{"mi.", "miles"}, {"km.", "kilometers"}, {"cm.", "centimeters"}, {"mm.", "millimeters"},
}

var symbols = []struct{ from, to string }{
	{"&", " and "}, {"%", " percent"}, {"@", " at "}, {"#", " number "},
	{"$", " dollars "}, {"€", " euros "}, {"£", " pounds "}, {"+", " plus "}, {"=", " equals "},
}

var ordinals = []struct{ from, to string }{
	{"1st", "first"}, {"2nd", "second"}, {"3rd", "third"}, {"4th", "fourth"},
	{"5th", "fifth"}, {"6th", "sixth"}, {"7th", "seventh"}, {"8th", "eighth"},
	{"9th", "ninth"}, {"10th", "tenth"}, {"11th", "eleventh"}, {"12th", "twelfth"},
	{"13th", "thirteenth"}, {"20th", "twentieth"}, {"21st", "twenty-first"},
	{"22nd", "twenty-second"}, {"23rd", "twenty-third"}, {"30th", "thirtieth"},
	{"100th", "hundredth"},
}

var allowedPunctuation = map[rune]bool{
	'.': true, ',': true, '!': true, '?': true, ';': true, ':': true,
	'\'': true, '-': true, '"': true,
}

// NormalizeForSynthesis applies spec.md §6's deterministic substitutions:
// abbreviation/symbol/ordinal/time expansion, whitespace collapse, then
// stripping of anything that isn't alphanumeric, whitespace, or allowed
// punctuation. An input that normalizes to nothing yields an empty string,
// signaling the caller to skip synthesis.
func NormalizeForSynthesis(text string) string {
	result := text
	for _, a := range abbreviations {
		result = strings.ReplaceAll(result, a.from, a.to)
	}
	for _, s := range symbols {
		result = strings.ReplaceAll(result, s.from, s.to)
	}
	for _, o := range ordinals {
		result = strings.ReplaceAll(result, o.from, o.to)
	}
	result = expandTimeFormat(result)
	result = strings.Join(strings.Fields(result), " ")

	var b strings.Builder
	for _, r := range result {
		if isAlphanumeric(r) || isSpace(r) || allowedPunctuation[r] {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r > 127
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func expandTimeFormat(text string) string {
	var b strings.Builder
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		c := runes[i]
		if c >= '0' && c <= '9' {
			start := i
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			hourDigits := string(runes[start:i])

			if i < len(runes) && runes[i] == ':' {
				j := i + 1
				minStart := j
				for j < len(runes) && runes[j] >= '0' && runes[j] <= '9' && j-minStart < 2 {
					j++
				}
				minuteDigits := string(runes[minStart:j])
				if minuteDigits != "" {
					hourWords := numberToWords(hourDigits)
					if minuteDigits == "00" {
						b.WriteString(hourWords)
						b.WriteString(" o'clock")
					} else {
						b.WriteString(hourWords)
						b.WriteString(" ")
						b.WriteString(numberToWords(minuteDigits))
					}
					i = j
					continue
				}
				b.WriteString(hourDigits)
				b.WriteString(":")
				i++
				continue
			}
			b.WriteString(hourDigits)
			continue
		}
		b.WriteRune(c)
		i++
	}
	return b.String()
}

var onesWords = []string{
	"", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen",
}

var tensWords = []string{
	"", "", "twenty", "thirty", "forty", "fifty", "sixty", "seventy", "eighty", "ninety",
}

func numberToWords(numStr string) string {
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return numStr
	}
	return intToWords(n, numStr)
}

func intToWords(n int, fallback string) string {
	switch {
	case n == 0:
		return "zero"
	case n >= 1 && n <= 19:
		return onesWords[n]
	case n >= 20 && n <= 99:
		t, o := n/10, n%10
		if o == 0 {
			return tensWords[t]
		}
		return tensWords[t] + "-" + onesWords[o]
	case n >= 100 && n <= 999:
		h, rem := n/100, n%100
		if rem == 0 {
			return onesWords[h] + " hundred"
		}
		return onesWords[h] + " hundred " + intToWords(rem, "")
	default:
		return fallback
	}
}
