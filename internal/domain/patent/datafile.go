package patent

import (
	"path/filepath"
	"sort"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

// DataFilePattern matches cleaned corpus files produced by the ETL pipeline.
// The suffix is a sortable timestamp, so the lexicographically greatest name
// is the newest file.
const DataFilePattern = "patents_cleaned_*.json"

// LatestDataFile returns the newest cleaned corpus file in dir.
func LatestDataFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, DataFilePattern))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDataFileAbsent, "scan data directory").WithDetail(dir)
	}
	if len(matches) == 0 {
		return "", apperrors.New(apperrors.CodeDataFileAbsent, "no cleaned data files found").WithDetail(dir)
	}
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// IsDataFile reports whether name (a base name or path) matches DataFilePattern.
func IsDataFile(name string) bool {
	ok, _ := filepath.Match(DataFilePattern, filepath.Base(name))
	return ok
}
