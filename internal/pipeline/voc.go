package pipeline

import (
	"slices"
	"strings"

	"github.com/sells-group/icp-research/internal/model"
)

// term maps a label to the phrases that signal it.
type term struct {
	label   string
	phrases []string
}

var (
	painPhrases = []string{
		"frustrated with", "tired of", "struggling with", "trapped by", "overwhelmed by",
		"worried about", "sick of", "stuck in", "afraid of", "can't keep up",
	}
	desirePhrases = []string{
		"looking for", "wish i could", "need to find", "want to achieve", "dream of",
		"if only", "would love to", "hoping to",
	}
	transformationPhrases = []string{
		"finally able to", "no longer worried", "confident that", "free from",
		"for the first time", "now i can", "peace of mind",
	}

	archetypeTerms = []term{
		{"hero", []string{"hero"}},
		{"caregiver", []string{"caregiver"}},
		{"sage", []string{"sage"}},
		{"explorer", []string{"explorer"}},
		{"rebel", []string{"rebel", "outlaw"}},
		{"ruler", []string{"ruler"}},
		{"creator", []string{"creator"}},
		{"innocent", []string{"innocent"}},
		{"everyman", []string{"everyman", "everyperson", "regular guy"}},
		{"lover", []string{"lover archetype", "the lover"}},
		{"jester", []string{"jester"}},
		{"magician", []string{"magician"}},
	}
	painCategoryTerms = []term{
		{"financial", []string{"money", "income", "revenue", "cost", "financial"}},
		{"time", []string{"time-starved", "no time", "time pressure", "busy"}},
		{"status", []string{"status", "reputation", "respect", "prestige"}},
		{"security", []string{"security", "safety", "stability", "risk"}},
		{"control", []string{"control", "autonomy", "independence"}},
		{"trust", []string{"trust", "skeptic", "credibility"}},
		{"overwhelm", []string{"overwhelm", "burnout", "exhaust"}},
	}
	decisionStyleTerms = []term{
		{"analytical", []string{"analytical", "data-driven", "research", "compare"}},
		{"emotional", []string{"emotional", "gut feeling", "feels right"}},
		{"consensus", []string{"consensus", "spouse", "partner", "committee", "stakeholder"}},
		{"risk_averse", []string{"risk-averse", "risk averse", "cautious", "conservative"}},
		{"impulsive", []string{"impulsive", "urgency", "act fast"}},
		{"authority_driven", []string{"authority", "expert", "referral", "recommendation"}},
	}
)

// analysisText joins the completed analysis fields in lower case.
func analysisText(s *model.ResearchState) string {
	var parts []string
	for _, f := range model.AnalysisFields {
		if text := s.Text(f); text != "" {
			parts = append(parts, strings.ToLower(text))
		}
	}
	return strings.Join(parts, "\n")
}

// extractVoiceOfCustomer collects the pain, desire and transformation
// phrases found in the completed analysis. A category with no matches keeps
// its first four stock phrases so reports always carry a lexicon.
func extractVoiceOfCustomer(s *model.ResearchState) *model.VoiceOfCustomer {
	text := analysisText(s)
	return &model.VoiceOfCustomer{
		PainLanguage:           phrasesIn(text, painPhrases),
		DesireLanguage:         phrasesIn(text, desirePhrases),
		TransformationLanguage: phrasesIn(text, transformationPhrases),
	}
}

func phrasesIn(text string, phrases []string) []string {
	var found []string
	for _, p := range phrases {
		if strings.Contains(text, p) {
			found = append(found, p)
		}
	}
	if len(found) == 0 {
		return slices.Clone(phrases[:min(4, len(phrases))])
	}
	return found
}

// extractPatterns builds the industry pattern blob for a run. Only labels
// from fixed vocabularies are kept, never the analysis text itself.
func extractPatterns(s *model.ResearchState, voc *model.VoiceOfCustomer) model.PatternBlob {
	text := analysisText(s)
	blob := model.PatternBlob{
		CommonArchetypes:      labelsIn(text, archetypeTerms),
		TypicalPainCategories: labelsIn(text, painCategoryTerms),
		DecisionMakingStyles:  labelsIn(text, decisionStyleTerms),
		LanguagePatternTypes:  []string{},
	}
	if text == "" || voc == nil {
		return blob
	}
	if containsAny(text, voc.PainLanguage) {
		blob.LanguagePatternTypes = append(blob.LanguagePatternTypes, "pain")
	}
	if containsAny(text, voc.DesireLanguage) {
		blob.LanguagePatternTypes = append(blob.LanguagePatternTypes, "desire")
	}
	if containsAny(text, voc.TransformationLanguage) {
		blob.LanguagePatternTypes = append(blob.LanguagePatternTypes, "transformation")
	}
	return blob
}

func labelsIn(text string, terms []term) []string {
	out := []string{}
	if text == "" {
		return out
	}
	for _, t := range terms {
		if containsAny(text, t.phrases) {
			out = append(out, t.label)
		}
	}
	return out
}
