package lm

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/internal/vocab"
)

type ngramEntry struct {
	logProb float64 // log10
	backoff float64 // log10, 0 when absent
}

// model is an n-gram back-off model keyed by packed vocabulary ids.
type model struct {
	order  int
	ngrams map[string]ngramEntry
	unk    uint32
	bos    uint32
	eos    uint32
}

func key(ids []uint32) string {
	buf := make([]byte, 4*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint32(buf[4*i:], id)
	}
	return string(buf)
}

// readARPA parses an ARPA file, interning every word into table.
func readARPA(r io.Reader, table *vocab.Table) (*model, error) {
	m := &model{ngrams: make(map[string]ngramEntry)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	section := 0 // 0 before \data\, -1 inside \data\, n inside \n-grams:
	counts := map[int]int{}
	seen := map[int]int{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch {
		case line == `\data\`:
			section = -1
			continue
		case line == `\end\`:
			section = 0
			continue
		case strings.HasPrefix(line, `\`) && strings.HasSuffix(line, "-grams:"):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(line, `\`), "-grams:"))
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("line %d: bad section header %q", lineNo, line)
			}
			section = n
			if n > m.order {
				m.order = n
			}
			continue
		}

		switch {
		case section == -1:
			decl, ok := strings.CutPrefix(line, "ngram ")
			if !ok {
				return nil, fmt.Errorf("line %d: expected \"ngram N=count\", got %q", lineNo, line)
			}
			nStr, cStr, ok := strings.Cut(decl, "=")
			if !ok {
				return nil, fmt.Errorf("line %d: expected \"ngram N=count\", got %q", lineNo, line)
			}
			n, err1 := strconv.Atoi(strings.TrimSpace(nStr))
			c, err2 := strconv.Atoi(strings.TrimSpace(cStr))
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("line %d: bad ngram count %q", lineNo, line)
			}
			counts[n] = c
		case section > 0:
			fields := strings.Fields(line)
			if len(fields) != section+1 && len(fields) != section+2 {
				return nil, fmt.Errorf("line %d: %d-gram entry has %d fields", lineNo, section, len(fields))
			}
			prob, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad probability %q", lineNo, fields[0])
			}
			e := ngramEntry{logProb: prob}
			if len(fields) == section+2 {
				if e.backoff, err = strconv.ParseFloat(fields[section+1], 64); err != nil {
					return nil, fmt.Errorf("line %d: bad backoff %q", lineNo, fields[section+1])
				}
			}
			ids := make([]uint32, section)
			for i := 0; i < section; i++ {
				ids[i] = table.Add(fields[1+i])
			}
			m.ngrams[key(ids)] = e
			seen[section]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading arpa: %w", err)
	}
	if m.order == 0 {
		return nil, fmt.Errorf("arpa file has no n-gram sections")
	}
	for n, c := range counts {
		if seen[n] != c {
			return nil, fmt.Errorf("header declares %d %d-grams, found %d", c, n, seen[n])
		}
	}
	m.unk = table.ID("<unk>")
	m.bos = table.Add("<s>")
	m.eos = table.Add("</s>")
	return m, nil
}

// logProb returns log10 p(word | context), backing off through shorter
// contexts. context holds the preceding words, most recent last.
func (m *model) logProb(context []uint32, word uint32) float64 {
	if word == vocab.Unknown {
		word = m.unk
	}
	if len(context) > m.order-1 {
		context = context[len(context)-(m.order-1):]
	}
	ids := make([]uint32, 0, len(context)+1)
	ids = append(ids, context...)
	ids = append(ids, word)

	backoff := 0.0
	for start := 0; start <= len(context); start++ {
		if e, ok := m.ngrams[key(ids[start:])]; ok {
			return backoff + e.logProb
		}
		if e, ok := m.ngrams[key(context[start:])]; ok && start < len(context) {
			backoff += e.backoff
		}
	}
	return backoff + unknownLogProb
}
