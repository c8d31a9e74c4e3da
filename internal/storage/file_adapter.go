package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"watchsync/internal/storage/interfaces"
)

const fileSuffix = ".json.zst"

var (
	ErrInvalidKey = errors.New("persistence key must match [A-Za-z0-9._-]+")
	keyPattern    = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

// FileAdapter keeps one zstd-compressed file per key in dir. Writes go to a
// temp file that is synced and renamed over the target.
type FileAdapter struct {
	mu         sync.Mutex
	dir        string
	compressor interfaces.CompressorInterface
}

func NewFileAdapter(dir string, compressor interfaces.CompressorInterface) (*FileAdapter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence dir: %w", err)
	}
	return &FileAdapter{dir: dir, compressor: compressor}, nil
}

func (f *FileAdapter) path(key string) (string, error) {
	if !keyPattern.MatchString(key) || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	return filepath.Join(f.dir, key+fileSuffix), nil
}

func (f *FileAdapter) Get(key string) ([]byte, bool, error) {
	fileName, err := f.path(key)
	if err != nil {
		return nil, false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	decompressed, err := f.compressor.Decompress(data)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", fileName, err)
	}
	return decompressed, true, nil
}

func (f *FileAdapter) Set(key string, value []byte) error {
	fileName, err := f.path(key)
	if err != nil {
		return err
	}

	data, err := f.compressor.Compress(value)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
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

func (f *FileAdapter) Remove(key string) error {
	fileName, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(fileName); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileAdapter) Close() error {
	f.compressor.Close()
	return nil
}
