package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"fscner/internal/util"
)

var (
	rePhoneStop    = regexp.MustCompile(`(?i)(fax|e-?mail|факс|тел)`)
	rePhoneJunk    = regexp.MustCompile(`[^\d+]`)
	reLocalPhone   = regexp.MustCompile(`^0\d{8,9}$`)
	rePostalCode   = regexp.MustCompile(`^[0-9]{4}$`)
	streetMarkers  = []string{"str", "blvd", "bul."}
	emailJunkParts = []string{"web", "www"}
)

// NormalizePhones converts raw phone spans to +359 international form.
// Anything after a fax/e-mail/факс/тел marker is dropped, the marker
// included, so "тел.: 032 632 111" yields nothing. Results shorter than ten
// characters are discarded and duplicates removed, keeping first occurrence.
func NormalizePhones(phones []string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, raw := range phones {
		phone, ok := normalizePhone(raw)
		if !ok {
			continue
		}
		if _, dup := seen[phone]; dup {
			continue
		}
		seen[phone] = struct{}{}
		out = append(out, phone)
	}
	return out
}

func normalizePhone(raw string) (string, bool) {
	phone := strings.TrimSpace(strings.ReplaceAll(raw, util.NBSP, " "))
	if loc := rePhoneStop.FindStringIndex(phone); loc != nil {
		phone = phone[:loc[0]]
	}
	phone = rePhoneJunk.ReplaceAllString(phone, "")

	if strings.Count(phone, "+") > 1 {
		phone = "+" + strings.ReplaceAll(phone, "+", "")
	}

	if reLocalPhone.MatchString(phone) {
		phone = "+359" + phone[1:]
	}
	// Strips every trunk zero after +359, not just one, so the result is a
	// fixed point: "+359 00 2 987 0235" gives +35929870235.
	for strings.HasPrefix(phone, "+3590") {
		phone = "+359" + phone[5:]
	}

	if len(phone) < 10 || !strings.HasPrefix(phone, "+") {
		return "", false
	}
	return phone, true
}

// NormalizeEmails strips "web"/"www" artefacts the recognizer sometimes
// captures in the domain. Output has the same length and order as the input.
func NormalizeEmails(emails []string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		out = append(out, normalizeEmail(e))
	}
	return out
}

func normalizeEmail(email string) string {
	prefix, domain := "", email
	if at := strings.LastIndex(email, "@"); at >= 0 {
		prefix, domain = email[:at+1], email[at+1:]
	}

	labels := strings.Split(domain, ".")
	last := len(labels) - 1
	// web/www labels are dropped only from the domain part, and only when
	// another label is left in front of the TLD ("info@web.bg" stays).
	dropJunk := false
	if prefix != "" {
		for _, label := range labels[:last] {
			if !isEmailJunkLabel(label) {
				dropJunk = true
				break
			}
		}
	}
	kept := make([]string, 0, len(labels))
	for i, label := range labels {
		if i == last {
			kept = append(kept, stripEmailJunk(strings.ToLower(label)))
			continue
		}
		if dropJunk && isEmailJunkLabel(label) {
			continue
		}
		kept = append(kept, label)
	}
	return prefix + strings.Join(kept, ".")
}

func isEmailJunkLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, junk := range emailJunkParts {
		if lower == junk {
			return true
		}
	}
	return false
}

// stripEmailJunk removes junk substrings until none is left, so the result
// is stable when normalized again.
func stripEmailJunk(label string) string {
	for {
		next := label
		for _, junk := range emailJunkParts {
			next = strings.ReplaceAll(next, junk, "")
		}
		if next == label {
			return label
		}
		label = next
	}
}

// FilterPostalCodes keeps candidates that are exactly four digits.
func FilterPostalCodes(values []string) []string {
	out := []string{}
	for _, v := range values {
		if rePostalCode.MatchString(v) {
			out = append(out, v)
		}
	}
	return out
}

// PostalCodeFallback returns the first standalone four-digit number in text.
// A run of digits counts as standalone when neither neighbour is a letter,
// digit, mark or underscore.
func PostalCodeFallback(text string) (string, bool) {
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isWordRune(runes[j]) {
			j++
		}
		if j-i == 4 && allASCIIDigits(runes[i:j]) {
			return string(runes[i:j]), true
		}
		i = j
	}
	return "", false
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

func allASCIIDigits(runes []rune) bool {
	for _, r := range runes {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FilterStreetAddresses keeps candidates mentioning a street marker. The
// match is a plain substring test, so "Strumitsa" passes too.
func FilterStreetAddresses(values []string) []string {
	out := []string{}
	for _, v := range values {
		lower := strings.ToLower(v)
		for _, marker := range streetMarkers {
			if strings.Contains(lower, marker) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}
