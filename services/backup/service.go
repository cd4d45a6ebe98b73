package backup

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrInvalidName    = errors.New("invalid backup filename")
)

// Info describes one backup archive on disk.
type Info struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// Manifest records what went into an archive, with checksums so a restore
// can detect corruption.
type Manifest struct {
	CreatedAt time.Time         `json:"createdAt"`
	Files     map[string]string `json:"files"`
}

// Files included in a backup, relative to the data directory.
var backupFiles = []string{
	"movies.db",
	"sessions.json",
}

// keepBackups is how many archives Prune retains.
const keepBackups = 10

// Service creates and manages zip backups of the data directory.
type Service struct {
	mu        sync.Mutex
	dataDir   string
	backupDir string
}

func NewService(dataDir string) (*Service, error) {
	backupDir := filepath.Join(dataDir, "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &Service{dataDir: dataDir, backupDir: backupDir}, nil
}

// Create writes a new archive containing the catalog database and session
// store, plus a manifest with per-file checksums.
func (s *Service) Create() (*Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stamp := now.Format("20060102-150405")
	filename := fmt.Sprintf("reelpick-backup-%s.zip", stamp)
	path := filepath.Join(s.backupDir, filename)
	for n := 2; ; n++ {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			break
		}
		filename = fmt.Sprintf("reelpick-backup-%s-%d.zip", stamp, n)
		path = filepath.Join(s.backupDir, filename)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}

	zw := zip.NewWriter(f)
	manifest := Manifest{CreatedAt: now, Files: make(map[string]string)}

	for _, name := range backupFiles {
		src := filepath.Join(s.dataDir, name)
		sum, err := addFile(zw, src, name)
		if errors.Is(err, os.ErrNotExist) {
			// sessions.json may not exist yet on a fresh install.
			continue
		}
		if err != nil {
			zw.Close()
			f.Close()
			os.Remove(tmp)
			return nil, fmt.Errorf("archive %s: %w", name, err)
		}
		manifest.Files[name] = sum
	}

	mw, err := zw.Create("manifest.json")
	if err == nil {
		err = json.NewEncoder(mw).Encode(manifest)
	}
	if err != nil {
		zw.Close()
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	log.Printf("[backup] created %s (%d bytes)", filename, stat.Size())
	return &Info{Filename: filename, Size: stat.Size(), CreatedAt: now}, nil
}

// List returns the archives on disk, newest first.
func (s *Service) List() ([]Info, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".zip") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Filename:  entry.Name(),
			Size:      fi.Size(),
			CreatedAt: fi.ModTime().UTC(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Delete removes one archive. The filename must be a bare name produced by
// Create; anything path-like is rejected.
func (s *Service) Delete(filename string) error {
	if err := validateName(filename); err != nil {
		return err
	}

	path := filepath.Join(s.backupDir, filename)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBackupNotFound
		}
		return err
	}
	return nil
}

// Open returns a reader for downloading an archive.
func (s *Service) Open(filename string) (io.ReadCloser, int64, error) {
	if err := validateName(filename); err != nil {
		return nil, 0, err
	}

	path := filepath.Join(s.backupDir, filename)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, ErrBackupNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, stat.Size(), nil
}

// Prune deletes the oldest archives beyond the retention count.
func (s *Service) Prune() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backups, err := s.List()
	if err != nil {
		return 0, err
	}
	if len(backups) <= keepBackups {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[keepBackups:] {
		if err := os.Remove(filepath.Join(s.backupDir, b.Filename)); err != nil {
			log.Printf("[backup] pruning %s failed: %v", b.Filename, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("[backup] pruned %d old backups", removed)
	}
	return removed, nil
}

func validateName(filename string) error {
	if filename == "" || filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".zip") {
		return ErrInvalidName
	}
	return nil
}

// addFile copies src into the archive under name and returns its sha256.
func addFile(zw *zip.Writer, src, name string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w, err := zw.Create(name)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, h), f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
