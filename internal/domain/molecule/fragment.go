package molecule

import (
	"strings"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Single-Cut Fragmentation
// ─────────────────────────────────────────────────────────────────────────────

// AttachmentPoint marks the cut position in core and fragment strings.
const AttachmentPoint = "[*]"

// Cut is one single-cut fragmentation of a molecule: the constant part (core)
// and the variable part (fragment), each carrying an attachment point.  Two
// molecules sharing a core form a matched molecular pair.
type Cut struct {
	Core     string `json:"core"`
	Fragment string `json:"fragment"`
}

// SingleCuts enumerates every acyclic single-bond cut of a SMILES string.
// A cut position is valid when it sits at branch depth zero, no ring closure
// spans it, and the bond is an implicit or explicit single bond.  The smaller
// side (by heavy atoms) becomes the fragment; ties keep the right side as
// the fragment so enumeration order is deterministic.
func SingleCuts(smiles string) ([]Cut, error) {
	tokens, err := ScanSMILES(smiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeFragmentationFailed, "cannot scan SMILES")
	}

	depth := 0
	openRings := map[string]bool{}
	var cuts []Cut

	for k := 1; k < len(tokens); k++ {
		prev := tokens[k-1]
		switch prev.Kind {
		case TokenBranchOpen:
			depth++
		case TokenBranchClose:
			depth--
		case TokenRing:
			if openRings[prev.Text] {
				delete(openRings, prev.Text)
			} else {
				openRings[prev.Text] = true
			}
		}

		cur := tokens[k]
		if cur.Kind != TokenAtom || depth != 0 || len(openRings) > 0 {
			continue
		}

		// The bond being cut is the one joining tokens[j-1] and cur.
		j := k
		if prev.Kind == TokenBond {
			if prev.Text != "-" {
				continue // double, triple, aromatic, or stereo bond
			}
			j = k - 1
			if j == 0 {
				continue
			}
			prev = tokens[j-1]
		}
		if prev.Kind != TokenAtom && prev.Kind != TokenBranchClose && prev.Kind != TokenRing {
			continue
		}

		left := joinTokens(tokens[:j])
		right := joinTokens(tokens[k:])
		cut, ok := orientCut(left, right)
		if ok {
			cuts = append(cuts, cut)
		}
	}
	return cuts, nil
}

func joinTokens(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// orientCut decides which side is the variable fragment.  Sides that fail to
// rescan (a branch left dangling, for example) invalidate the cut.
func orientCut(left, right string) (Cut, bool) {
	leftAtoms, errL := HeavyAtomCount(left)
	rightAtoms, errR := HeavyAtomCount(right)
	if errL != nil || errR != nil || leftAtoms == 0 || rightAtoms == 0 {
		return Cut{}, false
	}
	if leftAtoms < rightAtoms {
		return Cut{Core: AttachmentPoint + right, Fragment: left + AttachmentPoint}, true
	}
	return Cut{Core: left + AttachmentPoint, Fragment: AttachmentPoint + right}, true
}
