package classifier

import (
	"fmt"
	"strings"
)

var providerSeekingPhrases = []string{
	"find me a doctor", "looking for a doctor", "need a doctor",
	"find me a specialist", "looking for a specialist", "need a specialist",
	"find doctor", "find specialist", "doctor that accepts",
	"specialist in my network", "doctor in my area", "find a doctor",
}

var strongInsurancePhrases = []string{
	"covered by", "insurance cover", "insurance pay", "insurance benefits",
	"policy coverage", "does my plan cover", "will insurance pay",
	"insurance reimbursement", "my deductible", "insurance details",
	"my insurance coverage", "what are my insurance", "check my policy",
}

var healthKeywords = []string{
	"doctor", "physician", "medical", "healthcare", "hospital", "clinic",
	"specialist", "symptoms", "treatment", "diagnosis", "medication",
	"prescription", "find doctor", "medical help", "health issue",
	"cardiology", "pediatrics", "dermatology", "neurology", "orthopedic",
	"cardiologist", "pediatrician", "dermatologist", "neurologist",
}

var insuranceKeywords = []string{
	"insurance", "coverage", "covered", "policy", "claim", "benefits",
	"deductible", "copay", "premium", "plan", "benefit", "pays for",
	"reimburse", "out of pocket", "reimbursement",
}

var seekingContext = []string{"find", "looking for", "need a", "search for"}

var coverageContext = []string{"covered", "cover", "pay", "benefits", "reimburse"}

// ClassifyByRules runs the deterministic tiers against the query. It is pure:
// identical input always yields an identical Classification.
func ClassifyByRules(query string) Classification {
	q := strings.ToLower(query)

	if n := countMatches(q, providerSeekingPhrases); n > 0 {
		return ruleResult(HealthDoctor, 0.8, fmt.Sprintf("Provider seeking phrases found: %d", n))
	}
	if n := countMatches(q, strongInsurancePhrases); n > 0 {
		return ruleResult(Insurance, 0.8, fmt.Sprintf("Strong insurance indicators found: %d", n))
	}

	health := countMatches(q, healthKeywords)
	insurance := countMatches(q, insuranceKeywords)

	if health > 0 && insurance > 0 {
		if countMatches(q, seekingContext) > 0 {
			return ruleResult(HealthDoctor, 0.7,
				fmt.Sprintf("Mixed query - provider seeking context: health=%d, insurance=%d", health, insurance))
		}
		if countMatches(q, coverageContext) > 0 {
			return ruleResult(Insurance, 0.7,
				fmt.Sprintf("Mixed query - coverage context: insurance=%d, health=%d", insurance, health))
		}
	}

	// insurance is checked before health; kept as observed
	if insurance > 0 {
		return ruleResult(Insurance, 0.7, fmt.Sprintf("Insurance keywords found: %d", insurance))
	}
	if health > 0 {
		return ruleResult(HealthDoctor, 0.7, fmt.Sprintf("Health keywords found: %d", health))
	}
	return ruleResult(HealthDoctor, 0.3, "Default to health agent")
}

func ruleResult(category Category, confidence float64, reasoning string) Classification {
	return Classification{Category: category, Confidence: confidence, Reasoning: reasoning, Source: SourceRules}
}

func countMatches(text string, terms []string) int {
	n := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			n++
		}
	}
	return n
}
