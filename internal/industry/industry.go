// Package industry maps free-text business descriptions to a coarse
// industry tag using ordered keyword rules.
package industry

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Industry tags.
const (
	FinancialServices    = "financial_services"
	WellnessHealth       = "wellness_health"
	Technology           = "technology"
	RealEstate           = "real_estate"
	EcommerceRetail      = "ecommerce_retail"
	ProfessionalServices = "professional_services"
	Education            = "education"
	General              = "general"
)

type rule struct {
	tag      string
	keywords []string
}

// rules are checked in order; the first rule with any matching keyword wins.
// Keywords are matched against folded text whose punctuation has been
// replaced by spaces and which is padded with a space on each side, so a
// keyword with surrounding spaces only matches a whole word.
var rules = []rule{
	{FinancialServices, []string{
		"financial", "advisor", "adviser", "commission", "finra", "investment",
		"wealth", "insurance", "accounting", "bookkeep", " bank", "fintech",
		"retirement plan", " cpa ",
	}},
	{WellnessHealth, []string{
		"wellness", " spa ", " spas ", "health", "fitness", " gym", "yoga",
		"nutrition", "therap", "clinic", "medical", "dental", "dentist",
		"chiropract", "physio",
	}},
	{Technology, []string{
		" tech", "software", "saas", "digital", " ai ", "artificial intelligence",
		"machine learning", "cloud", "developer", " app ", " apps ", "cyber",
	}},
	{RealEstate, []string{
		"real estate", "realtor", "property", "properties", "mortgage",
		"landlord", "homebuyer", "home buyer", "brokerage",
	}},
	{EcommerceRetail, []string{
		"ecommerce", "e commerce", "online store", "retail", "shopify",
		" dtc ", "direct to consumer", "amazon seller", "merchandise",
	}},
	{ProfessionalServices, []string{
		"consult", "agency", "law firm", "attorney", "lawyer", "coach",
		"freelanc", "recruit", "staffing",
	}},
	{Education, []string{
		"education", "course", "school", "tutor", "teacher", "university",
		"student", "curriculum", "academy",
	}},
}

var tags = []string{
	FinancialServices,
	WellnessHealth,
	Technology,
	RealEstate,
	EcommerceRetail,
	ProfessionalServices,
	Education,
	General,
}

// Classify returns the industry tag for a business description. It is pure
// and always returns one of Tags(); General is the fallback.
func Classify(businessContext string) string {
	text := normalize(businessContext)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.tag
			}
		}
	}
	return General
}

// Tags returns the fixed set of industry tags.
func Tags() []string {
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// Valid reports whether tag is a known industry tag.
func Valid(tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	// A Caser is stateful, so each call gets its own.
	folded := cases.Fold().String(s)
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte(' ')
	return b.String()
}
