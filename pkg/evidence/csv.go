package evidence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/papercomputeco/tabletalk/pkg/vector"
)

var ratingColumns = []string{"star", "score", "rating"}

// ReadReviews parses a preprocessed review CSV. The header must have a
// "review" column. The rating comes from the first of star, score or rating
// that is present, and date is optional. Rows with a blank review are skipped
// but still count towards row_index.
func ReadReviews(r io.Reader, source string) ([]vector.Document, error) {
	if source == "" {
		return nil, errors.New("source name is required")
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		// spreadsheet exports often carry a BOM on the first column
		h = strings.TrimPrefix(h, "\ufeff")
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}

	reviewCol, ok := cols["review"]
	if !ok {
		return nil, errors.New(`csv has no "review" column`)
	}
	ratingCol := -1
	for _, name := range ratingColumns {
		if i, ok := cols[name]; ok {
			ratingCol = i
			break
		}
	}
	dateCol, hasDate := cols["date"]

	field := func(rec []string, i int) string {
		if i < 0 || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var docs []vector.Document
	for row := 0; ; row++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", row, err)
		}

		text := field(rec, reviewCol)
		if text == "" {
			continue
		}

		id := source + "-" + strconv.Itoa(row)
		meta := map[string]string{
			"id":        id,
			"source":    source,
			"row_index": strconv.Itoa(row),
			"rating":    field(rec, ratingCol),
		}
		if hasDate {
			meta["date"] = field(rec, dateCol)
		}

		docs = append(docs, vector.Document{ID: id, Text: text, Metadata: meta})
	}

	return docs, nil
}
