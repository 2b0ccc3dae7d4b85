package batch

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Load errors. Each wraps the underlying cause.
var (
	ErrRead   = errors.New("reading batch file")
	ErrDecode = errors.New("decoding batch file")
	ErrSchema = errors.New("batch file does not match schema")
	ErrExists = errors.New("batch file already exists")
)

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

type format int

const (
	formatJSON format = iota
	formatYAML
)

// Store loads the batch from a file and rewrites it as a checkpoint.
// The format follows the file extension: .yaml/.yml or JSON otherwise.
type Store struct {
	Path string

	// DefaultQueue is applied to creations that name no queue.
	DefaultQueue string
}

// NewStore returns a Store for path.
func NewStore(path, defaultQueue string) *Store {
	return &Store{Path: path, DefaultQueue: defaultQueue}
}

func (s *Store) format() format {
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatJSON
	}
}

// Exists checks if the batch file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads, schema-checks, decodes and validates the batch file.
func (s *Store) Load() (*TaskBatch, error) {
	b, err := s.read()
	if err != nil {
		return nil, err
	}
	b.ApplyDefaultQueue(s.DefaultQueue)
	if err := b.Validate(); err != nil {
		return nil, err
	}
	log.Debug().
		Str("path", s.Path).
		Int("created", b.Created.Len()).
		Int("updated", b.Updated.Len()).
		Int("deleted", b.Deleted.Len()).
		Msg("batch loaded")
	return b, nil
}

// Peek reads the batch without structural validation. An exhausted
// checkpoint (nothing pending) is returned as an empty batch.
func (s *Store) Peek() (*TaskBatch, error) {
	return s.read()
}

func (s *Store) read() (*TaskBatch, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}

	var doc any
	if err := s.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, s.Path, err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	var b TaskBatch
	if err := s.unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, s.Path, err)
	}
	return &b, nil
}

func (s *Store) unmarshal(data []byte, v any) error {
	if s.format() == formatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func (s *Store) marshal(b *TaskBatch) ([]byte, error) {
	if s.format() == formatYAML {
		return yaml.Marshal(b)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func validateSchema(doc any) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if result.Valid() {
		return nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, schemaErr := range result.Errors() {
		errs = append(errs, schemaErr.String())
	}
	sort.Strings(errs)

	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(errs, "; "))
}

// Save writes the whole batch over the file. The new content is written to
// a temporary file in the same directory and renamed into place, so the
// file always holds either the previous or the new checkpoint.
func (s *Store) Save(b *TaskBatch) error {
	data, err := s.marshal(b)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	mode := os.FileMode(0644)
	if info, err := os.Stat(s.Path); err == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating checkpoint: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("writing checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("syncing checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing checkpoint: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		cleanup()
		return fmt.Errorf("setting checkpoint mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		cleanup()
		return fmt.Errorf("replacing %s: %w", s.Path, err)
	}

	log.Debug().Str("path", s.Path).Int("pending", b.Pending()).Msg("checkpoint written")
	return nil
}

// WriteTemplate writes an example batch. It refuses to overwrite an
// existing file unless force is set.
func (s *Store) WriteTemplate(force bool) error {
	if !force && s.Exists() {
		return fmt.Errorf("%w: %s", ErrExists, s.Path)
	}
	return s.Save(Template())
}
