package tokenize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dupefind/dupefind/pkg/dferr"
)

var descriptorPattern = regexp.MustCompile(`^([a-z_]+)\(([^)]*)\)$`)

// Parse reconstructs a tokenizer Func from its descriptor string. It
// accepts "word_ngrams(N)", "char_ngrams(N)", and "char_ngrams(N,C)" where C
// is a single character optionally wrapped in single or double quotes.
//
// Parse never accepts CustomDescriptor ("custom"): a custom tokenizer has no
// descriptor form and must be re-supplied by the caller directly.
func Parse(descriptor string) (Func, error) {
	spec := strings.ReplaceAll(descriptor, " ", "")
	match := descriptorPattern.FindStringSubmatch(spec)
	if match == nil {
		return nil, dferr.New(dferr.InvalidInput, "tokenize", "Parse", errInvalidDescriptor(descriptor))
	}

	name, args := match[1], match[2]
	switch name {
	case "word_ngrams":
		n, err := strconv.Atoi(args)
		if err != nil || n <= 0 {
			return nil, dferr.New(dferr.InvalidInput, "tokenize", "Parse", errInvalidDescriptor(descriptor))
		}
		return func(s string) map[string]struct{} { return WordNGrams(s, n) }, nil

	case "char_ngrams":
		parts := strings.SplitN(args, ",", 2)
		n, err := strconv.Atoi(parts[0])
		if err != nil || n <= 0 {
			return nil, dferr.New(dferr.InvalidInput, "tokenize", "Parse", errInvalidDescriptor(descriptor))
		}
		padChar := DefaultPadChar
		if len(parts) == 2 {
			padChar = unquote(parts[1])
		}
		return func(s string) map[string]struct{} { return CharNGrams(s, n, padChar) }, nil

	default:
		return nil, dferr.New(dferr.InvalidInput, "tokenize", "Parse", errInvalidDescriptor(descriptor))
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

type descriptorError string

func (e descriptorError) Error() string { return "invalid tokenizer descriptor: " + string(e) }

func errInvalidDescriptor(d string) error { return descriptorError(d) }
