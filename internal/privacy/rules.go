package privacy

import "regexp"

// Built-in category names
const (
	CategoryEmail         = "EMAIL"
	CategoryCreditCard    = "CREDIT_CARD"
	CategorySSN           = "SSN"
	CategoryIPAddress     = "IP_ADDRESS"
	CategoryPhone         = "PHONE"
	CategoryDate          = "DATE"
	CategoryStreetAddress = "STREET_ADDRESS"
	CategoryPostalCode    = "POSTAL_CODE"
)

// defaultDefs lists the built-in rules in application order. Specific,
// self-delimiting formats come first so that the looser numeric patterns
// further down cannot claim pieces of them.
var defaultDefs = []RuleDef{
	{
		Name:    CategoryEmail,
		Pattern: `[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`,
		Style:   string(StyleTag),
	},
	{
		Name:    CategoryCreditCard,
		Pattern: `\b(?:\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{1,7}|3[47]\d{2}[- ]?\d{6}[- ]?\d{5})\b`,
		Style:   string(StylePreserve),
	},
	{
		Name:    CategorySSN,
		Pattern: `\b\d{3}-\d{2}-\d{4}\b`,
		Style:   string(StylePreserve),
	},
	{
		Name:    CategoryIPAddress,
		Pattern: `\b(?:(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\.){3}(?:25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)\b`,
		Style:   string(StyleTag),
	},
	{
		Name:    CategoryPhone,
		Pattern: `(?:\+1[-.\s]?|\b1[-.\s]?)?(?:\(\d{3}\)\s?|\b\d{3}[-.\s]?)\d{3}[-.\s]?\d{4}(?:\s*(?:x|ext\.?)\s*\d{1,5})?\b`,
		Style:   string(StylePreserve),
	},
	{
		Name: CategoryDate,
		Pattern: `\b(?:(?:19|20)\d{2}-\d{2}-\d{2}|\d{2}/\d{2}/(?:19|20)\d{2}|\d{2}-\d{2}-(?:19|20)\d{2}|` +
			`(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|Aug(?:ust)?|` +
			`Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)\s\d{1,2},\s(?:19|20)\d{2})\b`,
		Style: string(StylePreserve),
	},
	{
		Name: CategoryStreetAddress,
		Pattern: `(?i)\b\d{1,6}\s+(?:(?:North|N|South|S|East|E|West|W|NE|NW|SE|SW)\s+)?(?:[A-Za-z0-9'.]+\s){1,6}` +
			`(?:Street|St|Road|Rd|Avenue|Ave|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Place|Pl|Terrace|Ter|Way|Highway|Hwy)\b`,
		Style: string(StyleTag),
	},
	{
		Name:    CategoryPostalCode,
		Pattern: `\b(?:\d{5}(?:-\d{4})?|[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z] ?\d[ABCEGHJ-NPRSTV-Z]\d)\b`,
		Style:   string(StyleTag),
	},
}

var validators = map[string]func(string) bool{
	CategoryCreditCard: luhnValid,
}

// LoadDefaultRules returns a registry holding the built-in rules
func LoadDefaultRules() (*Registry, error) {
	registry := NewRegistry()
	for _, def := range defaultDefs {
		rule, err := CompileRule(def)
		if err != nil {
			return nil, err
		}
		rule.Validate = validators[def.Name]
		if err := registry.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

var nonDigit = regexp.MustCompile(`\D`)

// luhnValid checks a card number candidate with the Luhn checksum
func luhnValid(candidate string) bool {
	digits := nonDigit.ReplaceAllString(candidate, "")
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
