package bioisostere

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/molprop/platform/pkg/errors"
)

// LoadRules reads user-supplied replacement rules from a CSV file with the
// header from,to,rationale,support.  Rationale and support may be empty;
// support defaults to 1 so user rules rank below well-supported built-ins
// unless stated otherwise.
func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBioisostereRuleInvalid, "cannot open rules file")
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBioisostereRuleInvalid, "cannot parse rules CSV")
	}
	if len(records) < 2 {
		return nil, errors.New(errors.ErrCodeBioisostereRuleInvalid,
			"rules file needs a header and at least one rule")
	}

	header := records[0]
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	fromIdx, okFrom := col["from"]
	toIdx, okTo := col["to"]
	if !okFrom || !okTo {
		return nil, errors.New(errors.ErrCodeBioisostereRuleInvalid,
			"rules file must have from and to columns")
	}

	var rules []Rule
	for line, rec := range records[1:] {
		r := Rule{Support: 1}
		if fromIdx < len(rec) {
			r.From = strings.TrimSpace(rec[fromIdx])
		}
		if toIdx < len(rec) {
			r.To = strings.TrimSpace(rec[toIdx])
		}
		if i, ok := col["rationale"]; ok && i < len(rec) {
			r.Rationale = strings.TrimSpace(rec[i])
		}
		if i, ok := col["support"]; ok && i < len(rec) && strings.TrimSpace(rec[i]) != "" {
			n, convErr := strconv.Atoi(strings.TrimSpace(rec[i]))
			if convErr != nil {
				return nil, errors.Newf(errors.ErrCodeBioisostereRuleInvalid,
					"rule on line %d has non-integer support %q", line+2, rec[i])
			}
			r.Support = n
		}
		if err := ValidateRule(r); err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeBioisostereRuleInvalid,
				"rule on line %d", line+2)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// MergedRules combines the built-in table with user rules; user rules come
// last so equal-support collisions prefer the built-ins during ranking.
func MergedRules(userRules []Rule) []Rule {
	return append(BuiltinRules(), userRules...)
}
