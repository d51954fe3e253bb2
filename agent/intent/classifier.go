package intent

import (
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/vendor-desk-assistant/agent/contract"
)

var (
	greetingPattern = regexp.MustCompile(`(?i)^(?:hi|hello|hey|good\s+morning|good\s+afternoon|good\s+evening)\b`)

	// The po number may follow a '#' or sit right after the object phrase.
	createPattern = regexp.MustCompile(`(?i)\b(?:create|add)\s+(?:(?:a|an)\s+)?(?:po|purchase\s+order)(?:\s*#\s*|\s+)?(\d+)?\b`)
	deletePattern = regexp.MustCompile(`(?i)\b(?:delete|remove)\s+(?:po|purchase\s+order)(?:\s*#\s*|\s+)?(\d+)?\b`)

	amountPattern     = regexp.MustCompile(`(?i)\bamount\s*:?\s*([0-9]+(?:\.[0-9]+)?)`)
	vendorPattern     = regexp.MustCompile(`(?i)\bvendor\b\s*:?\s*([\w\s\-.]+)`)
	vendorStopPattern = regexp.MustCompile(`(?i)\s+amount\b`)
)

// Rule is one step of the precedence list. Match receives trimmed text and
// reports whether the rule fires.
type Rule struct {
	Kind  contractx.IntentKind
	Match func(text string) (contractx.Intent, bool)
}

// Rules is evaluated in order; the first match wins.
var Rules = []Rule{
	{Kind: contractx.IntentGreeting, Match: MatchGreeting},
	{Kind: contractx.IntentCreateOrder, Match: MatchCreateOrder},
	{Kind: contractx.IntentDeleteOrder, Match: MatchDeleteOrder},
}

// Classify returns the first matching intent, or Informational.
func Classify(text string) contractx.Intent {
	trimmed := strings.TrimSpace(text)
	for _, r := range Rules {
		if in, ok := r.Match(trimmed); ok {
			return in
		}
	}
	return contractx.Informational()
}

func MatchGreeting(text string) (contractx.Intent, bool) {
	if greetingPattern.MatchString(text) {
		return contractx.Greeting(), true
	}
	return contractx.Intent{}, false
}

// MatchCreateOrder fires only when at least one field was extracted, so vague
// phrasing falls through to the informational path.
func MatchCreateOrder(text string) (contractx.Intent, bool) {
	loc := createPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return contractx.Intent{}, false
	}

	in := contractx.Intent{Kind: contractx.IntentCreateOrder}
	if loc[2] >= 0 {
		if n, ok := parsePONumber(text[loc[2]:loc[3]]); ok {
			in.PONumber = &n
		}
	}

	rest := text[loc[1]:]
	if amount, ok := extractAmount(rest); ok {
		in.Amount = &amount
	}
	if vendor, ok := extractVendor(rest); ok {
		in.VendorName = &vendor
	}

	if !in.HasDetail() {
		return contractx.Intent{}, false
	}
	return in, true
}

func MatchDeleteOrder(text string) (contractx.Intent, bool) {
	m := deletePattern.FindStringSubmatch(text)
	if m == nil || m[1] == "" {
		return contractx.Intent{}, false
	}
	n, ok := parsePONumber(m[1])
	if !ok {
		return contractx.Intent{}, false
	}
	return contractx.DeleteOrder(n), true
}

func parsePONumber(raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractAmount(text string) (float64, bool) {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	amount, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}

// extractVendor captures a run of word characters, whitespace, hyphens and
// periods after "vendor". A trailing "amount ..." clause is not part of the name.
func extractVendor(text string) (string, bool) {
	m := vendorPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := m[1]
	if loc := vendorStopPattern.FindStringIndex(name); loc != nil {
		name = name[:loc[0]]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false
	}
	return name, true
}
