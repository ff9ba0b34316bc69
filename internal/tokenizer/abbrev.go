package tokenizer

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviation is one entry of the abbreviation table. text is the canonical
// spelling with every period written out.
type abbreviation struct {
	text string
	// loose entries also match with internal periods left out (d.v.s. -> dvs.).
	loose bool
	// optionalFinal entries also match without the closing period.
	optionalFinal bool
	// exactCase entries only match as written; others accept a capitalised
	// first letter as well.
	exactCase bool
}

// Spellings that are also common words in front of a sentence-final period
// (min., med., lat., red., bet., tom.) are not listed.
var abbreviations = []abbreviation{
	// multi-segment
	{text: "bl.a.", optionalFinal: true},
	{text: "d.v.s.", loose: true, optionalFinal: true},
	{text: "f.eks.", loose: true, optionalFinal: true},
	{text: "h.h.v.", loose: true, optionalFinal: true},
	{text: "m.h.t.", loose: true, optionalFinal: true},
	{text: "p.g.a.", loose: true, optionalFinal: true},
	{text: "i.h.t.", loose: true},
	{text: "i.st.f.", loose: true},
	{text: "m.v.", loose: true},
	{text: "m.a.o.", optionalFinal: true},
	{text: "m.fl."},
	{text: "m.m."},
	{text: "t.o.m."},
	{text: "f.o.m."},
	{text: "o.s.v."},
	{text: "e.l."},
	{text: "o.l."},
	{text: "o.a."},
	{text: "ø.l."},
	{text: "a.a."},
	{text: "d.e."},
	{text: "d.s."},
	{text: "i.e."},
	{text: "t.h."},
	{text: "t.v."},
	{text: "f.m."},
	{text: "e.m."},
	{text: "f.Kr."},
	{text: "e.Kr."},
	{text: "op.cit."},

	// references and cross references
	{text: "jf."},
	{text: "jfr."},
	{text: "sml."},
	{text: "sst."},
	{text: "ibid."},
	{text: "ff."},
	{text: "kap."},
	{text: "pkt."},
	{text: "nr."},
	{text: "gnr."},
	{text: "bnr."},
	{text: "jnr."},
	{text: "fig."},
	{text: "tab."},
	{text: "vol."},
	{text: "utg."},
	{text: "årg."},
	{text: "bd."},
	{text: "s.", exactCase: true},
	{text: "forskr."},
	{text: "lovl."},

	// general
	{text: "ca."},
	{text: "osv."},
	{text: "etc."},
	{text: "evt."},
	{text: "inkl."},
	{text: "ekskl."},
	{text: "ang."},
	{text: "anm."},
	{text: "eks."},
	{text: "egtl."},
	{text: "fork."},
	{text: "forts."},
	{text: "fhv."},
	{text: "fl."},
	{text: "iflg."},
	{text: "ifm."},
	{text: "ift."},
	{text: "komm."},
	{text: "lign."},
	{text: "mots."},
	{text: "obs."},
	{text: "ofl."},
	{text: "opprinn."},
	{text: "pr."},
	{text: "ref."},
	{text: "resp."},
	{text: "stk."},
	{text: "tilsv."},
	{text: "urspr."},
	{text: "vedk."},
	{text: "vedr."},
	{text: "vha."},

	// quantities and time
	{text: "kl."},
	{text: "mill."},
	{text: "mrd."},
	{text: "mnd."},
	{text: "sek."},
	{text: "feb."},
	{text: "aug."},
	{text: "sept."},
	{text: "okt."},
	{text: "nov."},

	// organisations, addresses and titles
	{text: "adm."},
	{text: "adr."},
	{text: "alm."},
	{text: "avd."},
	{text: "dept."},
	{text: "dir."},
	{text: "distr."},
	{text: "tlf."},
	{text: "hr."},
	{text: "fr."},
	{text: "frk."},
	{text: "dr."},
	{text: "prof."},
	{text: "stud."},
	{text: "cand."},
	{text: "jur."},
	{text: "phil."},
	{text: "oecon."},
	{text: "St.", exactCase: true},
	{text: "Mr.", exactCase: true},
	{text: "Mrs.", exactCase: true},
	{text: "Jr.", exactCase: true},
	{text: "Sr.", exactCase: true},

	// language labels
	{text: "bokm."},
	{text: "nyn."},
	{text: "norr."},
}

// pattern renders the entry as a regular expression fragment.
func (a abbreviation) pattern() string {
	segments := strings.Split(strings.TrimSuffix(a.text, "."), ".")

	var sb strings.Builder
	for i, seg := range segments {
		if i > 0 {
			sb.WriteString(`\.`)
			if a.loose {
				sb.WriteByte('?')
			}
		}
		if i == 0 && !a.exactCase {
			sb.WriteString(caseFold(seg))
			continue
		}
		sb.WriteString(regexp.QuoteMeta(seg))
	}

	sb.WriteString(`\.`)
	if a.optionalFinal {
		sb.WriteByte('?')
	}

	return sb.String()
}

// caseFold lets the first rune of seg match in either case.
func caseFold(seg string) string {
	r, size := utf8.DecodeRuneInString(seg)
	upper, lower := unicode.ToUpper(r), unicode.ToLower(r)
	if upper == lower {
		return regexp.QuoteMeta(seg)
	}
	return "[" + string(upper) + string(lower) + "]" + regexp.QuoteMeta(seg[size:])
}

// compileAbbreviations builds one anchored alternation. Longer entries come
// first so that a short entry never shadows a longer one sharing its prefix.
func compileAbbreviations(table []abbreviation) *regexp.Regexp {
	sorted := slices.Clone(table)
	slices.SortStableFunc(sorted, func(a, b abbreviation) int {
		return cmp.Compare(len(b.text), len(a.text))
	})

	alts := make([]string, len(sorted))
	for i, a := range sorted {
		alts[i] = a.pattern()
	}

	return regexp.MustCompile(`^(?:` + strings.Join(alts, "|") + `)`)
}
