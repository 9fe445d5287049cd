package rankings

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bggetl/internal/errs"
)

// RanksFile is the CSV inside the rankings dump.
const RanksFile = "boardgames_ranks.csv"

// ReadIDs returns the values of the "id" column of the ranks CSV at path, in
// file order. topK > 0 keeps only the first topK ids.
func ReadIDs(path string, topK int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rankings: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &errs.ConfigurationError{Field: "ranks csv", Message: path + " is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("rankings: read header of %s: %w", path, err)
	}
	col := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == "id" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, &errs.ConfigurationError{Field: "ranks csv", Message: path + " has no id column"}
	}

	var ids []string
	for topK <= 0 || len(ids) < topK {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("rankings: read %s: %w", path, err)
		}
		if col < len(rec) && rec[col] != "" {
			ids = append(ids, rec[col])
		}
	}
	return ids, nil
}
