package extract

import (
	"regexp"
	"strconv"
)

const DefaultRating = "0/5"

var (
	ratingScalePattern   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:/|out of|of)\s*(\d+(?:\.\d+)?)`)
	ratingPercentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	ratingValuePattern   = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// Rating renders value on a scale of max as an "x/5" string.
func Rating(value, max float64) string {
	if max <= 0 || value <= 0 {
		return DefaultRating
	}
	v := Round2(value * 5 / max)
	if v > 5 {
		v = 5
	}
	return strconv.FormatFloat(v, 'f', -1, 64) + "/5"
}

// ParseRating reads widget text like "4.5", "4.5 out of 5", "9/10" or "90%".
// The value is the number written against its scale; without one, review
// counts come first in most widgets so the last number wins. Unparseable text
// yields the default rating.
func ParseRating(text string) string {
	value, max := "", "5"
	if m := ratingScalePattern.FindStringSubmatch(text); m != nil {
		value, max = m[1], m[2]
	} else if m := ratingPercentPattern.FindStringSubmatch(text); m != nil {
		value, max = m[1], "100"
	} else if all := ratingValuePattern.FindAllString(text, -1); len(all) > 0 {
		value = all[len(all)-1]
	}
	if value == "" {
		return DefaultRating
	}

	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return DefaultRating
	}
	scale, err := strconv.ParseFloat(max, 64)
	if err != nil || scale <= 0 {
		return DefaultRating
	}
	return Rating(v, scale)
}
