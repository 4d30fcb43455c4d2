// Package bioisostere suggests classical fragment replacements for a query
// structure.  A rule table (built-in, optionally extended from a CSV file)
// maps a fragment to its accepted bioisosteres; suggestions are generated by
// substituting each occurrence in the query and ranked by literature support.
package bioisostere

import (
	"sort"
	"strings"

	"github.com/molprop/platform/internal/domain/molecule"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// Rule is one directed replacement.  Support is a coarse vote count used
// only for ranking; the built-in values reflect how common the swap is in
// published matched-pair studies.
type Rule struct {
	From      string
	To        string
	Rationale string
	Support   int
}

// builtinRules covers the classical swaps.  Longer fragments are listed with
// their full SMILES spelling so substring matching stays unambiguous.
var builtinRules = []Rule{
	{From: "C(=O)O", To: "c1nnn[nH]1", Rationale: "tetrazole for carboxylic acid, similar pKa", Support: 90},
	{From: "C(=O)O", To: "S(=O)(=O)N", Rationale: "acylsulfonamide surrogate for carboxylic acid", Support: 55},
	{From: "C(=O)N", To: "S(=O)(=O)N", Rationale: "sulfonamide for amide", Support: 60},
	{From: "C(=O)N", To: "C(=S)N", Rationale: "thioamide for amide", Support: 30},
	{From: "c1ccccc1", To: "c1ccncc1", Rationale: "pyridine for benzene, lowers logP", Support: 85},
	{From: "c1ccccc1", To: "c1ccsc1", Rationale: "thiophene for benzene", Support: 70},
	{From: "c1ccccc1", To: "c1ccoc1", Rationale: "furan for benzene", Support: 40},
	{From: "Cl", To: "F", Rationale: "halogen walk, smaller and more metabolically stable", Support: 80},
	{From: "Cl", To: "Br", Rationale: "halogen walk, larger hydrophobic", Support: 45},
	{From: "Cl", To: "C#N", Rationale: "nitrile for chlorine, similar sigma", Support: 50},
	{From: "F", To: "Cl", Rationale: "halogen walk", Support: 50},
	{From: "C#N", To: "Cl", Rationale: "chlorine for nitrile", Support: 35},
	{From: "OC", To: "SC", Rationale: "thioether for ether", Support: 25},
}

// BuiltinRules returns a copy of the built-in rule table.
func BuiltinRules() []Rule {
	return append([]Rule(nil), builtinRules...)
}

// ValidateRule rejects rules that cannot produce scannable structures.
func ValidateRule(r Rule) error {
	if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
		return errors.New(errors.ErrCodeBioisostereRuleInvalid, "rule fragments must not be empty")
	}
	if r.From == r.To {
		return errors.Newf(errors.ErrCodeBioisostereRuleInvalid,
			"rule %q replaces a fragment with itself", r.From)
	}
	return nil
}

// Suggest applies every rule to the query SMILES.  Each occurrence of a
// rule's From fragment yields one candidate product; products that fail to
// rescan are discarded.  Results are deduplicated and ordered by descending
// support, then product string.  maxResults <= 0 means no limit.
func Suggest(query string, rules []Rule, maxResults int) (*analysis.BioisostereResult, error) {
	if _, err := molecule.ScanSMILES(query); err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		rules = builtinRules
	}

	seen := map[string]bool{query: true}
	var suggestions []analysis.BioisostereSuggestion
	for _, rule := range rules {
		for _, pos := range occurrences(query, rule.From) {
			product := query[:pos] + rule.To + query[pos+len(rule.From):]
			if seen[product] {
				continue
			}
			if _, err := molecule.ScanSMILES(product); err != nil {
				continue
			}
			seen[product] = true
			suggestions = append(suggestions, analysis.BioisostereSuggestion{
				Product:   product,
				From:      rule.From,
				To:        rule.To,
				Rationale: rule.Rationale,
				Support:   rule.Support,
			})
		}
	}
	if len(suggestions) == 0 {
		return nil, errors.Newf(errors.ErrCodeBioisostereNoMatch,
			"no rule fragment occurs in %q", query)
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Support != suggestions[j].Support {
			return suggestions[i].Support > suggestions[j].Support
		}
		return suggestions[i].Product < suggestions[j].Product
	})
	if maxResults > 0 && len(suggestions) > maxResults {
		suggestions = suggestions[:maxResults]
	}
	return &analysis.BioisostereResult{Query: query, Suggestions: suggestions}, nil
}

// occurrences finds every match position of frag in s, including positions
// that a previous replacement would overlap; each candidate product applies
// exactly one substitution.
func occurrences(s, frag string) []int {
	var out []int
	for from := 0; ; {
		i := strings.Index(s[from:], frag)
		if i < 0 {
			return out
		}
		out = append(out, from+i)
		from += i + 1
	}
}
