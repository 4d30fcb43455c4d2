// Package molecule provides lightweight structure handling for compounds in
// MolProp results tables: SMILES token scanning, hashed circular fingerprints,
// fingerprint similarity, single-cut fragmentation for matched molecular
// pairs, and scaffold extraction for SAR grouping.
//
// The implementations are deliberately approximate.  The platform never needs
// chemically exact perception (that is the upstream toolkit's job); it needs
// stable, deterministic structure keys that behave well for grouping and
// ranking rows of a results table.
package molecule

import (
	"strings"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// SMILES Tokens
// ─────────────────────────────────────────────────────────────────────────────

// TokenKind classifies a scanned SMILES token.
type TokenKind int

const (
	TokenAtom TokenKind = iota
	TokenBond
	TokenBranchOpen
	TokenBranchClose
	TokenRing
	TokenDot
)

// Token is a single lexical unit of a SMILES string.
type Token struct {
	Kind     TokenKind
	Text     string
	Pos      int  // byte offset in the input
	Aromatic bool // atoms only
}

// twoLetterAtoms are the organic-subset element symbols spelled with two
// characters; they must be matched before single letters.
var twoLetterAtoms = []string{"Cl", "Br"}

// ScanSMILES splits a SMILES string into tokens.  It accepts the organic
// subset, bracket atoms, ring-closure digits (including %nn), branch
// parentheses, explicit bonds, and dot separators.  Anything else is an error
// so malformed cells surface early instead of producing garbage keys.
func ScanSMILES(smiles string) ([]Token, error) {
	s := strings.TrimSpace(smiles)
	if s == "" {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "empty SMILES")
	}

	var tokens []Token
	depth := 0
	openRings := map[string]int{}
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
					"unclosed bracket atom at offset %d", i)
			}
			text := s[i : i+end+1]
			tokens = append(tokens, Token{Kind: TokenAtom, Text: text, Pos: i,
				Aromatic: isAromaticBracket(text)})
			i += end + 1
		case c == '(':
			tokens = append(tokens, Token{Kind: TokenBranchOpen, Text: "(", Pos: i})
			depth++
			i++
		case c == ')':
			if depth == 0 {
				return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
					"unmatched closing parenthesis at offset %d", i)
			}
			tokens = append(tokens, Token{Kind: TokenBranchClose, Text: ")", Pos: i})
			depth--
			i++
		case c == '-' || c == '=' || c == '#' || c == ':' || c == '/' || c == '\\':
			tokens = append(tokens, Token{Kind: TokenBond, Text: string(c), Pos: i})
			i++
		case c == '.':
			tokens = append(tokens, Token{Kind: TokenDot, Text: ".", Pos: i})
			i++
		case c >= '0' && c <= '9':
			tokens = append(tokens, Token{Kind: TokenRing, Text: string(c), Pos: i})
			toggleRing(openRings, string(c), i)
			i++
		case c == '%':
			if i+2 >= len(s) || !isDigit(s[i+1]) || !isDigit(s[i+2]) {
				return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
					"malformed ring closure at offset %d", i)
			}
			tokens = append(tokens, Token{Kind: TokenRing, Text: s[i : i+3], Pos: i})
			toggleRing(openRings, s[i:i+3], i)
			i += 3
		default:
			matched := false
			for _, sym := range twoLetterAtoms {
				if strings.HasPrefix(s[i:], sym) {
					tokens = append(tokens, Token{Kind: TokenAtom, Text: sym, Pos: i})
					i += len(sym)
					matched = true
					break
				}
			}
			if matched {
				continue
			}
			if isOrganicAtom(c) {
				tokens = append(tokens, Token{Kind: TokenAtom, Text: string(c), Pos: i,
					Aromatic: c >= 'a' && c <= 'z'})
				i++
				continue
			}
			return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
				"unexpected character %q at offset %d", string(c), i)
		}
	}

	if depth > 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
			"%d unclosed parenthesis(es)", depth)
	}
	for label, pos := range openRings {
		return nil, errors.Newf(errors.ErrCodeInvalidSMILES,
			"unclosed ring bond %s opened at offset %d", label, pos)
	}
	if !hasAtom(tokens) {
		return nil, errors.New(errors.ErrCodeInvalidSMILES, "no atoms found in SMILES")
	}
	return tokens, nil
}

// toggleRing records a ring-bond label: the first occurrence opens it, the
// second closes it, a third reuses the freed label.
func toggleRing(open map[string]int, label string, pos int) {
	if _, isOpen := open[label]; isOpen {
		delete(open, label)
		return
	}
	open[label] = pos
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isOrganicAtom accepts the single-letter organic subset plus their aromatic
// forms.  H appears outside brackets in some toolkit exports, so it is
// tolerated here.
func isOrganicAtom(c byte) bool {
	switch c {
	case 'B', 'C', 'N', 'O', 'P', 'S', 'F', 'I', 'H':
		return true
	case 'b', 'c', 'n', 'o', 'p', 's':
		return true
	default:
		return false
	}
}

func isAromaticBracket(text string) bool {
	inner := strings.Trim(text, "[]")
	return len(inner) > 0 && inner[0] >= 'a' && inner[0] <= 'z'
}

func hasAtom(tokens []Token) bool {
	for _, t := range tokens {
		if t.Kind == TokenAtom {
			return true
		}
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Atom Extraction
// ─────────────────────────────────────────────────────────────────────────────

// Atom is an element symbol plus its aromaticity, normalized for hashing.
type Atom struct {
	Symbol   string
	Aromatic bool
}

// AtomsOf returns the normalized atom sequence of a SMILES string.  Bracket
// atoms are reduced to their element symbol; charges, isotopes, and explicit
// hydrogens are dropped because the fingerprint treats them as noise.
func AtomsOf(smiles string) ([]Atom, error) {
	tokens, err := ScanSMILES(smiles)
	if err != nil {
		return nil, err
	}
	var atoms []Atom
	for _, t := range tokens {
		if t.Kind != TokenAtom {
			continue
		}
		atoms = append(atoms, Atom{Symbol: elementOf(t.Text), Aromatic: t.Aromatic})
	}
	return atoms, nil
}

// elementOf extracts the element symbol from an atom token, e.g. "[N+]" and
// "n" both yield "N".
func elementOf(text string) string {
	inner := strings.Trim(text, "[]")
	// strip leading isotope digits
	for len(inner) > 0 && isDigit(inner[0]) {
		inner = inner[1:]
	}
	if inner == "" {
		return "?"
	}
	sym := string(inner[0])
	if len(inner) > 1 && inner[1] >= 'a' && inner[1] <= 'z' {
		// two-letter element inside brackets, e.g. [Cl-] or [Se]
		if sym != strings.ToLower(sym) || isTwoLetter(inner[:2]) {
			sym = inner[:2]
		}
	}
	return strings.ToUpper(sym[:1]) + sym[1:]
}

func isTwoLetter(s string) bool {
	for _, sym := range twoLetterAtoms {
		if strings.EqualFold(s, sym) {
			return true
		}
	}
	return false
}

// HeavyAtomCount returns the number of non-hydrogen atoms.
func HeavyAtomCount(smiles string) (int, error) {
	atoms, err := AtomsOf(smiles)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, a := range atoms {
		if a.Symbol != "H" {
			n++
		}
	}
	return n, nil
}

// NormalizeKey produces a whitespace-free comparison key for SMILES cell
// matching in lookups.  It is not canonicalization; two different valid
// spellings of one molecule stay distinct.
func NormalizeKey(smiles string) string {
	return strings.TrimSpace(smiles)
}
