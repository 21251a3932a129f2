package levelstore

import (
	"cmp"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound = errors.New("level not found")
	ErrReadOnly = errors.New("level store is read-only")
)

// ManifestFile names the optional pack description inside a level directory.
const ManifestFile = "pack.yaml"

//go:embed levels
var defaultPack embed.FS

// Store is a numbered collection of level texts. Numbers start at 1.
type Store interface {
	List(ctx context.Context) ([]Info, error)
	Read(ctx context.Context, number int) (string, error)
	Write(ctx context.Context, number int, text string) error
}

// Info describes one level of a store.
type Info struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// Manifest is the pack.yaml layout.
type Manifest struct {
	Name   string          `yaml:"name"`
	Levels []ManifestEntry `yaml:"levels"`
}

type ManifestEntry struct {
	File string `yaml:"file"`
	Name string `yaml:"name,omitempty"`
}

// PackStore reads a level pack from a file system. Without a pack.yaml the
// *.txt files are used in natural order (level2 before level10).
type PackStore struct {
	fsys fs.FS
	dir  string
	log  *zap.Logger
}

// NewDir opens a writable level directory.
func NewDir(dir string, log *zap.Logger) (*PackStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open level directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open level directory: %s is not a directory", dir)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PackStore{fsys: os.DirFS(dir), dir: dir, log: log}, nil
}

// NewEmbedded returns the read-only pack compiled into the binary.
func NewEmbedded() *PackStore {
	sub, err := fs.Sub(defaultPack, "levels")
	if err != nil {
		panic(err)
	}
	return &PackStore{fsys: sub, log: zap.NewNop()}
}

// Manifest returns the pack manifest, synthesising one from the directory
// listing when there is no pack.yaml.
func (s *PackStore) Manifest() (*Manifest, error) {
	data, err := fs.ReadFile(s.fsys, ManifestFile)
	if errors.Is(err, fs.ErrNotExist) {
		return s.scan()
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestFile, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	for i, e := range m.Levels {
		if e.File == "" || path.Base(e.File) != e.File {
			return nil, fmt.Errorf("parse %s: level %d has invalid file %q", ManifestFile, i+1, e.File)
		}
	}
	return &m, nil
}

func (s *PackStore) scan() (*Manifest, error) {
	files, err := fs.Glob(s.fsys, "*.txt")
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	slices.SortFunc(files, func(a, b string) int {
		if c := cmp.Compare(trailingNumber(a), trailingNumber(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	m := &Manifest{}
	for _, f := range files {
		m.Levels = append(m.Levels, ManifestEntry{File: f})
	}
	return m, nil
}

func trailingNumber(file string) int {
	base := strings.TrimSuffix(file, path.Ext(file))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return -1
	}
	return n
}

func (s *PackStore) List(ctx context.Context) ([]Info, error) {
	m, err := s.Manifest()
	if err != nil {
		return nil, err
	}
	infos := make([]Info, len(m.Levels))
	for i, e := range m.Levels {
		name := e.Name
		if name == "" {
			name = strings.TrimSuffix(e.File, path.Ext(e.File))
		}
		infos[i] = Info{Number: i + 1, Name: name}
	}
	return infos, nil
}

func (s *PackStore) Read(ctx context.Context, number int) (string, error) {
	m, err := s.Manifest()
	if err != nil {
		return "", err
	}
	if number < 1 || number > len(m.Levels) {
		return "", fmt.Errorf("%w: %d", ErrNotFound, number)
	}

	data, err := fs.ReadFile(s.fsys, m.Levels[number-1].File)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %d (%s)", ErrNotFound, number, m.Levels[number-1].File)
	}
	if err != nil {
		return "", fmt.Errorf("read level %d: %w", number, err)
	}
	return string(data), nil
}

// Write replaces an existing level, or appends a new one when number is one
// past the last level.
func (s *PackStore) Write(ctx context.Context, number int, text string) error {
	if s.dir == "" {
		return ErrReadOnly
	}

	m, err := s.Manifest()
	if err != nil {
		return err
	}

	switch {
	case number >= 1 && number <= len(m.Levels):
		return writeFileAtomic(filepath.Join(s.dir, m.Levels[number-1].File), []byte(text))
	case number == len(m.Levels)+1:
	default:
		return fmt.Errorf("%w: %d", ErrNotFound, number)
	}

	file := fmt.Sprintf("level%d.txt", number)
	if err := writeFileAtomic(filepath.Join(s.dir, file), []byte(text)); err != nil {
		return err
	}

	if _, err := fs.Stat(s.fsys, ManifestFile); err == nil {
		m.Levels = append(m.Levels, ManifestEntry{File: file})
		data, err := yaml.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode %s: %w", ManifestFile, err)
		}
		if err := writeFileAtomic(filepath.Join(s.dir, ManifestFile), data); err != nil {
			return err
		}
	}
	s.log.Info("level added", zap.Int("number", number), zap.String("file", file))
	return nil
}

func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".level-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
