// Package textproc repairs text extracted from paginated documents.
package textproc

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLang is used when no language is given.
const DefaultLang = "pl"

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

// Dehyphenator joins words split across line ends.
type Dehyphenator struct {
	tag   language.Tag
	lower cases.Caser
}

// New validates lang as a BCP 47 tag.
func New(lang string) (*Dehyphenator, error) {
	if strings.TrimSpace(lang) == "" {
		lang = DefaultLang
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("language %q: %w", lang, err)
	}
	return &Dehyphenator{tag: tag, lower: cases.Lower(tag)}, nil
}

func (d *Dehyphenator) Lang() language.Tag { return d.tag }

// vocabulary holds the lower-cased words and hyphenated compounds seen in a document.
type vocabulary struct {
	words     map[string]bool
	compounds map[string]bool
}

func (d *Dehyphenator) scan(text string) vocabulary {
	v := vocabulary{words: map[string]bool{}, compounds: map[string]bool{}}
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimFunc(tok, func(r rune) bool { return !unicode.IsLetter(r) })
		if tok == "" {
			continue
		}
		tok = d.lower.String(tok)
		if strings.Contains(tok, "-") {
			v.compounds[tok] = true
			continue
		}
		v.words[tok] = true
	}
	return v
}

// Dehyphenate rejoins "frag-\ncont" pairs. The hyphen is dropped when the joined
// word appears elsewhere in the text, kept when the hyphenated compound does,
// and otherwise dropped only for a lowercase continuation. Paragraphs keep their
// blank line separation; whitespace inside them is collapsed.
func (d *Dehyphenator) Dehyphenate(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	vocab := d.scan(text)

	var paragraphs []string
	for _, para := range paragraphBreak.Split(text, -1) {
		lines := strings.Split(para, "\n")
		var b strings.Builder
		for i := 0; i < len(lines); i++ {
			line := strings.TrimRight(lines[i], " \t")
			if i+1 < len(lines) {
				next := strings.TrimLeft(lines[i+1], " \t")
				if frag, ok := trailingFragment(line); ok {
					if cont := leadingWord(next); cont != "" {
						// the merged line goes through the same check as the next one
						lines[i+1] = d.join(line, frag, next, cont, vocab)
						continue
					}
				}
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if collapsed := strings.Join(strings.Fields(b.String()), " "); collapsed != "" {
			paragraphs = append(paragraphs, collapsed)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

func (d *Dehyphenator) join(line, frag, next, cont string, v vocabulary) string {
	joined := d.lower.String(frag + cont)
	compound := d.lower.String(frag + "-" + cont)
	head := strings.TrimSuffix(line, "-")
	switch {
	case v.words[joined]:
		return head + next
	case v.compounds[compound]:
		return line + next
	case startsLower(cont):
		return head + next
	default:
		return line + next
	}
}

// trailingFragment returns the letters directly before a final hyphen.
func trailingFragment(line string) (string, bool) {
	if !strings.HasSuffix(line, "-") {
		return "", false
	}
	body := strings.TrimSuffix(line, "-")
	start := len(body)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(body[:start])
		if !unicode.IsLetter(r) {
			break
		}
		start -= size
	}
	if start == len(body) {
		return "", false
	}
	return body[start:], true
}

// leadingWord returns the letters at the start of line, or "" if it does not start with one.
func leadingWord(line string) string {
	end := 0
	for end < len(line) {
		r, size := utf8.DecodeRuneInString(line[end:])
		if !unicode.IsLetter(r) {
			break
		}
		end += size
	}
	return line[:end]
}

func startsLower(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLower(r)
}

// Dehyphenate is a convenience wrapper around New and Dehyphenator.Dehyphenate.
func Dehyphenate(text, lang string) (string, error) {
	d, err := New(lang)
	if err != nil {
		return "", err
	}
	return d.Dehyphenate(text), nil
}

// OutputPath is <dir>/<stem>_unhyphenated.txt.
func OutputPath(input string) string {
	base := filepath.Base(input)
	return filepath.Join(filepath.Dir(input), strings.TrimSuffix(base, filepath.Ext(base))+"_unhyphenated.txt")
}

// ProcessFile dehyphenates input and writes the result next to it.
func ProcessFile(input, lang string) (string, error) {
	d, err := New(lang)
	if err != nil {
		return "", err
	}
	raw, err := os.ReadFile(input)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%s: not valid UTF-8", input)
	}
	out := OutputPath(input)
	if err := os.WriteFile(out, []byte(d.Dehyphenate(string(raw))), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", out, err)
	}
	return out, nil
}
