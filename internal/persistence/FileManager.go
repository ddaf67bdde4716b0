// Package persistence snapshots session state to disk and runs the
// periodic maintenance jobs.
package persistence

import (
	"fmt"
	"os"
	"sort"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/persistence/interfaces"
	"feedsync/internal/providers"

	json "github.com/goccy/go-json"
)

const (
	snapshotVersion = 1
	// DefaultFeed receives the ids of a legacy snapshot that predates per-feed sections.
	DefaultFeed = "home"
)

// Snapshot is the on-disk format, compressed as a whole.
type Snapshot struct {
	Version   int                 `json:"version"`
	SavedAt   time.Time           `json:"saved_at"`
	Collapsed map[string][]string `json:"collapsed"`
}

// FileManager persists the explicit collapse state of every registered feed.
type FileManager struct {
	feeds      map[string]*models.CollapseState
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, feeds map[string]*models.CollapseState, logger providers.Logger) *FileManager {
	return &FileManager{
		feeds:      feeds,
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileManager) snapshot() Snapshot {
	s := Snapshot{
		Version:   snapshotVersion,
		SavedAt:   time.Now().UTC(),
		Collapsed: make(map[string][]string, len(f.feeds)),
	}
	for name, state := range f.feeds {
		s.Collapsed[name] = state.IDs()
	}
	return s
}

func (f *FileManager) SaveToFile(fileName string) error {
	jsonData, err := json.Marshal(f.snapshot())
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile replaces the registered states with the saved ones. A missing
// file is not an error.
func (f *FileManager) LoadFromFile(fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressed, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snapshot Snapshot
	if err := json.Unmarshal(decompressed, &snapshot); err == nil && snapshot.Collapsed != nil {
		if snapshot.Version > snapshotVersion {
			f.logger.Warnf(providers.TypeApp, "Snapshot version %d is newer than supported %d", snapshot.Version, snapshotVersion)
		}
		f.apply(snapshot.Collapsed)
		return nil
	}

	// plain id list, single feed
	f.logger.Warnf(providers.TypeApp, "Snapshot without feed sections found, migrating into %q", DefaultFeed)
	var ids []string
	if err := json.Unmarshal(decompressed, &ids); err != nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return fmt.Errorf("parse snapshot %s: %w", fileName, err)
	}
	f.apply(map[string][]string{DefaultFeed: ids})
	return nil
}

func (f *FileManager) apply(collapsed map[string][]string) {
	names := make([]string, 0, len(collapsed))
	for name := range collapsed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state, ok := f.feeds[name]
		if !ok {
			f.logger.Debugf(providers.TypeApp, "Ignoring saved collapse state of unknown feed %q", name)
			continue
		}
		state.Replace(collapsed[name])
	}
}

func (f *FileManager) Close() {
	f.compressor.Close()
}
