package patent

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strings"
	"unicode"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// Corpus is the loaded, read-only patent collection. Scenario code borrows
// *Record values from it and must not modify them.
type Corpus struct {
	path      string
	records   []Record
	byDoc     map[string]int
	byNormDoc map[string]int
}

// LoadCorpus reads a JSON array of patent objects from path. A missing or
// unreadable file, malformed JSON, a non-array document, or a record without a
// doc_number all fail with CodeCorpusLoad.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.New(apperrors.CodeCorpusLoad, "corpus file not found").WithDetail(path)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeCorpusLoad, "read corpus file").WithDetail(path)
	}

	data = bytes.TrimPrefix(bytes.TrimSpace(data), []byte("\xef\xbb\xbf"))
	if len(data) == 0 || data[0] != '[' {
		return nil, apperrors.New(apperrors.CodeCorpusLoad, "corpus file is not a JSON array").WithDetail(path)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCorpusLoad, "malformed corpus JSON").WithDetail(path)
	}

	c, err := NewCorpus(records)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCorpusLoad, "invalid corpus record").WithDetail(path)
	}
	c.path = path
	return c, nil
}

// NewCorpus builds a corpus from records already in memory. Every record must
// carry a doc_number. When doc numbers repeat, the exact-match index points at
// the last occurrence.
func NewCorpus(records []Record) (*Corpus, error) {
	c := &Corpus{
		records:   records,
		byDoc:     make(map[string]int, len(records)),
		byNormDoc: make(map[string]int, len(records)),
	}
	for i := range c.records {
		r := &c.records[i]
		if strings.TrimSpace(r.DocNumber) == "" {
			return nil, apperrors.Newf(apperrors.CodeCorpusLoad, "record %d has no doc_number", i)
		}
		if r.Claims == nil {
			r.Claims = []string{}
		}
		c.byDoc[r.DocNumber] = i
		norm := NormalizeDocNumber(r.DocNumber)
		if _, seen := c.byNormDoc[norm]; !seen {
			c.byNormDoc[norm] = i
		}
	}
	return c, nil
}

// Path is the file the corpus was loaded from, empty for in-memory corpora.
func (c *Corpus) Path() string { return c.path }

// Len is the number of records.
func (c *Corpus) Len() int { return len(c.records) }

// Record returns the record at position i.
func (c *Corpus) Record(i int) *Record { return &c.records[i] }

// DocNumbers lists doc numbers in record order.
func (c *Corpus) DocNumbers() []string {
	out := make([]string, len(c.records))
	for i := range c.records {
		out[i] = c.records[i].DocNumber
	}
	return out
}

// Position returns the array position of an exact doc number.
func (c *Corpus) Position(docNumber string) (int, bool) {
	i, ok := c.byDoc[docNumber]
	return i, ok
}

// GetByID looks a record up by exact doc number first, then by normalized doc
// number (see NormalizeDocNumber). It returns the record and its position.
func (c *Corpus) GetByID(docNumber string) (*Record, int, bool) {
	if i, ok := c.byDoc[docNumber]; ok {
		return &c.records[i], i, true
	}
	if i, ok := c.byNormDoc[NormalizeDocNumber(docNumber)]; ok {
		return &c.records[i], i, true
	}
	return nil, -1, false
}

// NormalizeDocNumber uppercases s, removes whitespace and hyphens, and strips
// one leading "US".
func NormalizeDocNumber(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
	return strings.TrimPrefix(s, "US")
}
