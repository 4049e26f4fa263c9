package datewindow

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// dashReplacer maps the dash variants retailers use to ASCII hyphen.
var dashReplacer = strings.NewReplacer(
	"\u2010", "-", // hyphen
	"\u2011", "-", // non-breaking hyphen
	"\u2012", "-", // figure dash
	"\u2013", "-", // en dash
	"\u2014", "-", // em dash
	"\u2212", "-", // minus sign
)

// statusPrefixes are removed from the start of the text, longest first.
var statusPrefixes = []string{
	"now expected by",
	"expected delivery by",
	"expected delivery on",
	"expected delivery date",
	"expected delivery",
	"estimated delivery date",
	"estimated delivery",
	"estimated arrival",
	"guaranteed delivery",
	"delivery expected",
	"delivery date",
	"delivery by",
	"delivery on",
	"delivery",
	"arriving on",
	"arriving by",
	"arriving",
	"arrives on",
	"arrives by",
	"arrives",
	"expected by",
	"expected on",
	"expected",
	"estimated",
	"between",
	"due",
	"by",
	"on",
}

// deadlineRe matches a trailing "by 10pm" or "before 9:30 pm".
var deadlineRe = regexp.MustCompile(`^(.+?),? (?:by|before) \d{1,2}(?:[:.]\d{2})? ?(?:am|pm|a\.m\.?|p\.m\.?)$`)

// normalize canonicalizes delivery text for matching.
func normalize(raw string) string {
	s := norm.NFKC.String(raw)
	s = cases.Fold().String(s)
	s = dashReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .!;:")
	s = stripStatusPrefixes(s)
	if m := deadlineRe.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	return s
}

func stripStatusPrefixes(s string) string {
	for {
		trimmed := false
		for _, p := range statusPrefixes {
			rest, ok := strings.CutPrefix(s, p)
			if !ok || rest == "" {
				continue
			}
			if rest[0] != ' ' && rest[0] != ':' {
				continue
			}
			s = strings.TrimLeft(rest, " :")
			trimmed = true
			break
		}
		if !trimmed {
			return s
		}
	}
}
