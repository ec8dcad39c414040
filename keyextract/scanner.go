package keyextract

import (
	"encoding/base64"
	"regexp"
	"strings"
)

// SmaliFileName is the disassembly source file that carries the embedded key.
const SmaliFileName = "InstrumentRepository.smali"

var (
	base64Re = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
	methodRe = regexp.MustCompile(`(?s)\.method[^\n]*getAuthHeader[^\n]*\n(.*?)\n\.end method`)
	stringRe = regexp.MustCompile(`const-string(?:/jumbo)?\s+v\d+,\s+"([^"]+)"`)
)

// SmaliMatcher is the default candidate matching strategy for apktool smali
// output. It bounds the search to the body of the getAuthHeader accessor when
// the method markers are present; without them it scans the entire text at
// lower precision.
type SmaliMatcher struct{}

// Candidates returns the unique base64 string literals in text that decode to
// exactly 64 bytes. Literals decoding to 32 bytes are always discarded; those
// are unrelated seeds baked into the same classes.
func (SmaliMatcher) Candidates(text string) []string {
	segment := text
	if m := methodRe.FindStringSubmatch(text); m != nil {
		segment = m[1]
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, m := range stringRe.FindAllStringSubmatch(segment, -1) {
		raw := strings.TrimSpace(m[1])
		if len(raw) < 20 || !base64Re.MatchString(raw) {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil || len(decoded) != 64 {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		candidates = append(candidates, raw)
	}
	return candidates
}
