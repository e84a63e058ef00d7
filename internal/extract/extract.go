// Package extract pulls dates, document numbers, full names and money
// amounts out of recognised document text.
package extract

import "regexp"

// Fields holds the matches per category, deduplicated in first-seen order.
// The slices are never nil.
type Fields struct {
	Dates   []string `json:"dates"`
	Numbers []string `json:"numbers"`
	Names   []string `json:"names"`
	Amounts []string `json:"amounts"`
}

// Patterns use [\s\p{Zs}] so non-breaking spaces separate tokens like
// ordinary ones.
var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{4}`),
		regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
		regexp.MustCompile(`\d{4}-\d{1,2}-\d{1,2}`),
	}
	numberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`№[\s\p{Zs}]*\d+(?:[/-]\d+)*`),
		regexp.MustCompile(`(?i)дело[\s\p{Zs}]*№?[\s\p{Zs}]*\d+(?:[/-]\d+)*`),
	}
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`[А-ЯЁ][а-яё]+[\s\p{Zs}]+[А-ЯЁ][а-яё]+[\s\p{Zs}]+[А-ЯЁ][а-яё]+`),
	}
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\d+(?:[\s\p{Zs}]\d{3})*(?:[,.]\d{2})?[\s\p{Zs}]*(?:руб|₽|рублей)`),
	}
)

// Extract scans text with every pattern of every category. It has no side
// effects and an empty text yields four empty lists.
func Extract(text string) Fields {
	return Fields{
		Dates:   matchAll(text, datePatterns),
		Numbers: matchAll(text, numberPatterns),
		Names:   matchAll(text, namePatterns),
		Amounts: matchAll(text, amountPatterns),
	}
}

func matchAll(text string, patterns []*regexp.Regexp) []string {
	out := []string{}
	if text == "" {
		return out
	}

	seen := make(map[string]struct{})
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// Merge appends the values of lists to dst skipping duplicates, keeping
// first-seen order. It is used to build case-wide summaries.
func Merge(dst []string, lists ...[]string) []string {
	if dst == nil {
		dst = []string{}
	}
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, list := range lists {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			dst = append(dst, v)
		}
	}
	return dst
}
