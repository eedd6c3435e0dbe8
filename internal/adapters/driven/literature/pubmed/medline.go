package pubmed

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/faersight/internal/core/domain"
)

// ParseMedline reads records in the MEDLINE display format. Each line is a
// four character tag padded to "TAG - value"; continuation lines are indented
// six spaces and records are separated by blank lines.
func ParseMedline(r io.Reader) ([]domain.LiteratureRecord, error) {
	var (
		records []domain.LiteratureRecord
		fields  = map[string][]string{}
		lastTag string
	)

	flush := func() {
		if len(fields["PMID"]) > 0 {
			records = append(records, toRecord(fields))
		}
		fields = map[string][]string{}
		lastTag = ""
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.TrimSpace(line) == "":
			flush()
		case strings.HasPrefix(line, "      ") && lastTag != "":
			vals := fields[lastTag]
			vals[len(vals)-1] += " " + strings.TrimSpace(line)
		case len(line) >= 6 && line[4] == '-':
			lastTag = strings.TrimSpace(line[:4])
			fields[lastTag] = append(fields[lastTag], strings.TrimSpace(line[5:]))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading medline: %w", err)
	}
	flush()
	return records, nil
}

func toRecord(f map[string][]string) domain.LiteratureRecord {
	first := func(tag string) string {
		if v := f[tag]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	journal := first("TA")
	if journal == "" {
		journal = first("JT")
	}
	year := first("DP")
	if len(year) >= 4 {
		year = year[:4]
	}

	return domain.LiteratureRecord{
		PMID:      first("PMID"),
		Title:     first("TI"),
		Abstract:  first("AB"),
		Chemicals: f["RN"],
		MeSHTerms: f["MH"],
		Year:      year,
		Journal:   journal,
	}
}
