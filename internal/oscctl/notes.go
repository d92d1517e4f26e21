package oscctl

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// pitchClass maps a note letter, optionally followed by a sharp/flat
// accidental, to its semitone offset from C.
var pitchClass = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// ParseNoteToken resolves one token of spec.md §6's three note-literal
// forms into a frequency in Hz:
//   - a float > 127 is already a frequency in Hz
//   - an integer in [0,127] is a MIDI note number
//   - anything else is parsed as a note name (`C#3`, `Bb2`, `A4`)
func ParseNoteToken(tok string) (float32, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return 0, fmt.Errorf("oscctl: empty note token")
	}

	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		if f > 127 {
			return float32(f), nil
		}
		if f >= 0 && f == math.Trunc(f) {
			return midiToHz(int(f)), nil
		}
	}

	return parseNoteName(tok)
}

func parseNoteName(tok string) (float32, error) {
	if len(tok) < 2 {
		return 0, fmt.Errorf("oscctl: invalid note name %q", tok)
	}
	letter := byte(strings.ToUpper(tok[:1])[0])
	pc, ok := pitchClass[letter]
	if !ok {
		return 0, fmt.Errorf("oscctl: invalid note name %q", tok)
	}
	rest := tok[1:]

	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 's' || rest[0] == 'S') {
		pc++
		rest = rest[1:]
	} else if len(rest) > 0 && (rest[0] == 'b' || rest[0] == 'B') {
		pc--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("oscctl: invalid note octave in %q: %w", tok, err)
	}

	midi := (octave+1)*12 + pc
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("oscctl: note %q resolves outside MIDI range", tok)
	}
	return midiToHz(midi), nil
}

// midiToHz converts a MIDI note number to frequency under A4=440
// equal temperament (A4 = MIDI 69).
func midiToHz(midi int) float32 {
	return float32(440 * math.Pow(2, float64(midi-69)/12))
}

// ParseNoteList splits a comma-separated note list (spec.md §6
// `/seq/update/notes`) into frequencies, stopping at the first
// unparseable token.
func ParseNoteList(csv string) ([]float32, error) {
	parts := strings.Split(csv, ",")
	out := make([]float32, 0, len(parts))
	for _, p := range parts {
		hz, err := ParseNoteToken(p)
		if err != nil {
			return nil, err
		}
		out = append(out, hz)
	}
	return out, nil
}
