package factors

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/carbonledger/carbonledger/internal/scope"
	"github.com/carbonledger/carbonledger/internal/units"
)

//go:embed dataset.yaml
var defaultDataset []byte

// datasetFile is the YAML wire format of a factor dataset.
type datasetFile struct {
	Version           string       `yaml:"version"`
	VocabularyVersion string       `yaml:"vocabulary_version"`
	Factors           []recordYAML `yaml:"factors"`
}

// recordYAML is the YAML wire format of one factor. Value is decoded as a
// string so decimal parsing keeps the published precision.
type recordYAML struct {
	ID        string        `yaml:"id"`
	Activity  string        `yaml:"activity"`
	Fuel      string        `yaml:"fuel"`
	Region    string        `yaml:"region"`
	Source    string        `yaml:"source"`
	Unit      string        `yaml:"unit"`
	Value     string        `yaml:"value"`
	Scope     string        `yaml:"scope"`
	Breakdown *GasBreakdown `yaml:"ghg_breakdown"`
}

// Store is an immutable, in-memory factor dataset with precomputed match
// vectors. Safe for concurrent reads without locking.
type Store struct {
	version string
	records []Record
	vectors []tokenVector
}

// Load reads a dataset file from disk.
func Load(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open factor dataset: %w", err)
	}
	defer f.Close()

	store, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("load factor dataset %s: %w", path, err)
	}
	return store, nil
}

// LoadReader parses and validates a YAML dataset. The dataset must declare
// the vocabulary version it was authored against; a different major version
// than units.VocabularyVersion is rejected with ErrVocabularyMismatch.
func LoadReader(r io.Reader) (*Store, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read factor dataset: %w", err)
	}

	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if len(file.Factors) == 0 {
		return nil, fmt.Errorf("%w: dataset contains no factors", ErrInvalidDataset)
	}

	if err := checkVocabularyVersion(file.VocabularyVersion); err != nil {
		return nil, err
	}

	store := &Store{
		version: file.Version,
		records: make([]Record, 0, len(file.Factors)),
		vectors: make([]tokenVector, 0, len(file.Factors)),
	}
	seen := make(map[string]struct{}, len(file.Factors))

	for i, raw := range file.Factors {
		rec, err := raw.toRecord()
		if err != nil {
			return nil, fmt.Errorf("factor %d: %w", i, err)
		}
		if err := rec.validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate factor id %q", ErrInvalidDataset, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		store.records = append(store.records, rec)
		store.vectors = append(store.vectors, newTokenVector(rec.matchText()))
	}

	return store, nil
}

// Default returns the built-in factor dataset. It is validated at build
// time by the package tests, so a failure here is a programming error.
func Default() *Store {
	store, err := LoadReader(strings.NewReader(string(defaultDataset)))
	if err != nil {
		panic(fmt.Sprintf("embedded factor dataset is invalid: %v", err))
	}
	return store
}

// checkVocabularyVersion rejects datasets authored against a different
// vocabulary major version.
func checkVocabularyVersion(v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%w: dataset does not declare vocabulary_version", ErrInvalidDataset)
	}
	declared, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("%w: bad vocabulary_version %q: %v", ErrInvalidDataset, v, err)
	}
	current := semver.MustParse(units.VocabularyVersion)
	if declared.Major() != current.Major() {
		return fmt.Errorf("%w: dataset built for vocabulary %s, engine speaks %s",
			ErrVocabularyMismatch, declared, current)
	}
	return nil
}

// toRecord converts the YAML wire form into a validated Record.
func (r recordYAML) toRecord() (Record, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(r.Value))
	if err != nil {
		return Record{}, fmt.Errorf("%w: record %s has unparseable value %q",
			ErrInvalidDataset, r.ID, r.Value)
	}

	rec := Record{
		ID:        r.ID,
		Activity:  r.Activity,
		Fuel:      r.Fuel,
		Region:    r.Region,
		Source:    r.Source,
		Unit:      r.Unit,
		Value:     value,
		Breakdown: r.Breakdown,
	}

	if strings.TrimSpace(r.Scope) != "" {
		s, err := scope.Parse(r.Scope)
		if err != nil {
			return Record{}, fmt.Errorf("%w: record %s: %v", ErrInvalidDataset, r.ID, err)
		}
		rec.Scope = &s
	}
	return rec, nil
}

// Version returns the dataset's own version string.
func (s *Store) Version() string {
	return s.version
}

// Len returns the number of factors in the dataset.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the dataset records in insertion order. The slice is
// shared; callers must treat it as read-only.
func (s *Store) Records() []Record {
	return s.records
}

// FindCandidates scores every factor against the query text and returns
// those at or above minSimilarity, ordered by similarity descending.
// Equal-similarity candidates keep dataset insertion order. maxResults
// limits the result count; zero or negative means no limit. Source
// preference tie-breaking is the matcher's job.
func (s *Store) FindCandidates(query string, minSimilarity float64, maxResults int) []Candidate {
	queryVec := newTokenVector(query)
	if queryVec == nil {
		return nil
	}

	var out []Candidate
	for i, vec := range s.vectors {
		sim := cosine(queryVec, vec)
		if sim < minSimilarity {
			continue
		}
		out = append(out, Candidate{Record: s.records[i], Similarity: sim})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Similarity > out[j].Similarity
	})
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out
}
