// internal/hangul/hangul.go
//
// Jamo decomposition/composition for precomposed Hangul syllables and the
// initial-sound-law (두음법칙) substitution rules the word chain relies on.
//
// A syllable in U+AC00..U+D7A3 encodes (initial, medial, final) as
//   code = base + (ini*21 + med)*28 + fin
// so all three packages of work here are pure index arithmetic over the
// three jamo tables below.

package hangul

// Syllable block bounds and per-index strides.
const (
	syllableBase = 0xAC00 // '가'
	syllableLast = 0xD7A3 // '힣'

	medialCount = 21
	finalCount  = 28
)

// initials are the 19 leading consonants, in code-point order.
var initials = [19]rune{
	'ㄱ', 'ㄲ', 'ㄴ', 'ㄷ', 'ㄸ', 'ㄹ', 'ㅁ', 'ㅂ', 'ㅃ',
	'ㅅ', 'ㅆ', 'ㅇ', 'ㅈ', 'ㅉ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// medials are the 21 vowels, in code-point order.
var medials = [21]rune{
	'ㅏ', 'ㅐ', 'ㅑ', 'ㅒ', 'ㅓ', 'ㅔ', 'ㅕ', 'ㅖ', 'ㅗ', 'ㅘ',
	'ㅙ', 'ㅚ', 'ㅛ', 'ㅜ', 'ㅝ', 'ㅞ', 'ㅟ', 'ㅠ', 'ㅡ', 'ㅢ', 'ㅣ',
}

// finals are the 28 trailing consonants; index 0 is "no final", represented
// as the zero rune throughout this package.
var finals = [28]rune{
	0, 'ㄱ', 'ㄲ', 'ㄳ', 'ㄴ', 'ㄵ', 'ㄶ', 'ㄷ', 'ㄹ', 'ㄺ',
	'ㄻ', 'ㄼ', 'ㄽ', 'ㄾ', 'ㄿ', 'ㅀ', 'ㅁ', 'ㅂ', 'ㅄ', 'ㅅ',
	'ㅆ', 'ㅇ', 'ㅈ', 'ㅊ', 'ㅋ', 'ㅌ', 'ㅍ', 'ㅎ',
}

// IsSyllable reports whether r is a precomposed Hangul syllable.
func IsSyllable(r rune) bool {
	return r >= syllableBase && r <= syllableLast
}

// Decompose splits a syllable into its jamo components.
// fin is 0 for syllables without a trailing consonant.
// ok is false for any rune outside the syllable block; callers must treat
// that as "no components" rather than an error.
func Decompose(r rune) (ini, med, fin rune, ok bool) {
	if !IsSyllable(r) {
		return 0, 0, 0, false
	}
	n := int(r - syllableBase)
	iniIdx := n / (medialCount * finalCount)
	medIdx := (n / finalCount) % medialCount
	finIdx := n % finalCount
	return initials[iniIdx], medials[medIdx], finals[finIdx], true
}

// Compose builds a syllable from jamo components.
// Pass fin as 0 for no trailing consonant. ok is false if any component is
// not a member of its table.
func Compose(ini, med, fin rune) (rune, bool) {
	iniIdx := indexOf(initials[:], ini)
	medIdx := indexOf(medials[:], med)
	finIdx := indexOf(finals[:], fin)
	if iniIdx < 0 || medIdx < 0 || finIdx < 0 {
		return 0, false
	}
	return rune(syllableBase + (iniIdx*medialCount+medIdx)*finalCount + finIdx), true
}

func indexOf(table []rune, r rune) int {
	for i, t := range table {
		if t == r {
			return i
		}
	}
	return -1
}

// Vowel sets that trigger the initial-sound-law substitutions.
var (
	softenNVowels = map[rune]bool{'ㅑ': true, 'ㅕ': true, 'ㅛ': true, 'ㅠ': true, 'ㅣ': true}
	softenRVowels = map[rune]bool{'ㅑ': true, 'ㅕ': true, 'ㅖ': true, 'ㅛ': true, 'ㅠ': true, 'ㅣ': true}
)

// Alternates returns the characters that may legally replace r at the start
// of a word under the initial-sound-law:
//
//   - ㄴ before ㅑ/ㅕ/ㅛ/ㅠ/ㅣ softens to ㅇ (냐→야, 니→이).
//   - ㄹ before ㅑ/ㅕ/ㅖ/ㅛ/ㅠ/ㅣ softens to ㅇ (려→여); before any other
//     vowel it becomes ㄴ (로→노). Exactly one of the two applies.
//
// The result never contains r itself and is empty for every other initial
// and for non-syllable input.
func Alternates(r rune) []rune {
	ini, med, fin, ok := Decompose(r)
	if !ok {
		return nil
	}

	var out []rune
	switch ini {
	case 'ㄴ':
		if softenNVowels[med] {
			if alt, ok := Compose('ㅇ', med, fin); ok {
				out = append(out, alt)
			}
		}
	case 'ㄹ':
		sub := rune('ㄴ')
		if softenRVowels[med] {
			sub = 'ㅇ'
		}
		if alt, ok := Compose(sub, med, fin); ok {
			out = append(out, alt)
		}
	}
	return out
}

// ValidStarts returns every character a word may start with when it has to
// chain off r: the literal character first, then its alternates.
func ValidStarts(r rune) []rune {
	return append([]rune{r}, Alternates(r)...)
}
