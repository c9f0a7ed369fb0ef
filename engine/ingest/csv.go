package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/examaid/examaid/engine/domain"
)

// ReadTextCSV parses a Wikidata text dump. Expected columns: compound,
// compoundLabel, article. Unknown columns are ignored.
func ReadTextCSV(r io.Reader) ([]domain.CompoundRecord, error) {
	return readCSV(r, domain.PointTypeText, "article")
}

// ReadImageCSV parses a Wikidata image dump. Expected columns: compound,
// compoundLabel, image.
func ReadImageCSV(r io.Reader) ([]domain.CompoundRecord, error) {
	return readCSV(r, domain.PointTypeImage, "image")
}

func readCSV(r io.Reader, recType, contentColumn string) ([]domain.CompoundRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("ingest: empty csv")
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: read csv header: %w", err)
	}

	idx := map[string]int{}
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"compound", "compoundLabel", contentColumn} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("ingest: csv missing column %q", required)
		}
	}

	var records []domain.CompoundRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: read csv row: %w", err)
		}

		field := func(name string) string {
			i := idx[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		rec := domain.CompoundRecord{
			CompoundID:   field("compound"),
			CompoundName: field("compoundLabel"),
			Source:       "Wikidata",
			Type:         recType,
		}
		if recType == domain.PointTypeImage {
			rec.ImagePath = field(contentColumn)
		} else {
			rec.Article = field(contentColumn)
		}
		records = append(records, rec)
	}
	return records, nil
}
