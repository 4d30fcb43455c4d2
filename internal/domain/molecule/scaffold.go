package molecule

import (
	"strings"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Scaffold Extraction
// ─────────────────────────────────────────────────────────────────────────────

// AcyclicScaffold is the group key used for molecules without any ring.
const AcyclicScaffold = "acyclic"

// ScaffoldOf derives a framework key from a SMILES string, approximating a
// Murcko scaffold: branches containing no ring bond are removed, and chain
// atoms before the first ring atom and after the last ring closure are
// trimmed.  Linkers between rings survive.  Acyclic molecules map to
// AcyclicScaffold so every row lands in some SAR group.
func ScaffoldOf(smiles string) (string, error) {
	tokens, err := ScanSMILES(smiles)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInvalidSMILES, "cannot scan SMILES")
	}

	pruned := dropRinglessBranches(tokens)

	first, last := ringSpan(pruned)
	if first < 0 {
		return AcyclicScaffold, nil
	}
	return joinTokens(pruned[first : last+1]), nil
}

// dropRinglessBranches removes every parenthesized branch whose contents
// carry no ring closure, recursively.  A substituent like (C(=O)O) vanishes;
// a fused-ring branch like (c1ccccc1) stays.
func dropRinglessBranches(tokens []Token) []Token {
	var out []Token
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.Kind != TokenBranchOpen {
			out = append(out, t)
			continue
		}
		end := matchBranch(tokens, i)
		if end < 0 {
			// unbalanced; keep as-is rather than guessing
			out = append(out, t)
			continue
		}
		inner := tokens[i+1 : end]
		if containsRing(inner) {
			out = append(out, t)
			out = append(out, dropRinglessBranches(inner)...)
			out = append(out, tokens[end])
		}
		i = end
	}
	return out
}

// matchBranch returns the index of the ')' closing the '(' at open.
func matchBranch(tokens []Token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].Kind {
		case TokenBranchOpen:
			depth++
		case TokenBranchClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func containsRing(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind == TokenRing {
			return true
		}
	}
	return false
}

// ringSpan returns the index of the atom opening the first ring and the index
// of the last ring-closure token, or (-1, -1) when no ring exists.
func ringSpan(tokens []Token) (int, int) {
	firstRing, lastRing := -1, -1
	for i, t := range tokens {
		if t.Kind == TokenRing {
			if firstRing < 0 {
				firstRing = i
			}
			lastRing = i
		}
	}
	if firstRing < 0 {
		return -1, -1
	}
	// walk back from the first ring digit to the atom it annotates
	start := firstRing
	for start > 0 && tokens[start].Kind != TokenAtom {
		start--
	}
	return start, lastRing
}

// ScaffoldKey normalizes a scaffold for map grouping.
func ScaffoldKey(scaffold string) string {
	return strings.TrimSpace(scaffold)
}
