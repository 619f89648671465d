package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/bazaarkit/media/internal/pkg/config"
	"github.com/bazaarkit/media/internal/pkg/upload"
)

// Store persists byte blobs under a canonical root directory and guarantees
// no operation ever touches a path outside it. The filesystem is the only
// index: there is no manifest, which is why bare references fall back to a
// directory scan.
type Store struct {
	root      string
	temp      string
	retention time.Duration
}

// FileStorageResult describes one stored blob. FileReference is the only
// identifier callers should retain; AbsolutePath is an internal detail.
type FileStorageResult struct {
	FileReference    string
	OriginalFilename string
	SizeBytes        int64
	ContentType      string
	AbsolutePath     string
}

// FileMetadata is derived on demand from filesystem attributes, never cached.
// CreatedAt carries the modification time: Go's portable file info does not
// expose a birth time.
type FileMetadata struct {
	Filename    string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// BatchItem is one entry of a StoreBatch call.
type BatchItem struct {
	Filename string
	Data     []byte
}

// New canonicalizes the configured root and temp directories and creates
// them eagerly. Creating an already-existing directory is not an error.
func New(cfg *config.StorageConfig) (*Store, error) {
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root dir: %w", err)
	}
	temp, err := filepath.Abs(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("resolve temp dir: %w", err)
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create root dir %s: %w", root, err)
	}
	if err := os.MkdirAll(temp, 0755); err != nil {
		return nil, fmt.Errorf("create temp dir %s: %w", temp, err)
	}

	log.Infof("[Storage] Initialized - root: %s, temp: %s", root, temp)

	return &Store{
		root:      root,
		temp:      temp,
		retention: time.Duration(cfg.TempRetentionHours) * time.Hour,
	}, nil
}

// Store writes data under root/directory with a freshly generated reference
// of the form <uuid>_<sanitized-filename>. An existing file at the generated
// path is overwritten; the random component makes collision practically
// impossible, so no locking is needed for concurrent stores.
func (s *Store) Store(data []byte, originalFilename, directory string) (*FileStorageResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file data", ErrValidation)
	}
	if strings.TrimSpace(originalFilename) == "" {
		return nil, fmt.Errorf("%w: empty filename", ErrValidation)
	}

	targetDir := filepath.Join(s.root, directory)
	if err := s.ensureInsideRoot(targetDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", targetDir, err)
	}

	fileReference := uuid.NewString() + "_" + upload.SanitizeFilename(originalFilename)
	targetPath := filepath.Join(targetDir, fileReference)

	if err := s.ensureInsideRoot(targetPath); err != nil {
		return nil, err
	}

	if err := os.WriteFile(targetPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write file %s: %w", targetPath, err)
	}

	log.Infof("[Storage] Stored %s -> %s (%d bytes)", originalFilename, targetPath, len(data))

	return &FileStorageResult{
		FileReference:    fileReference,
		OriginalFilename: originalFilename,
		SizeBytes:        int64(len(data)),
		ContentType:      http.DetectContentType(data),
		AbsolutePath:     targetPath,
	}, nil
}

// StoreBatch stores every item or none. On the first failure all items
// stored earlier in this call are deleted and the original error is
// returned; a failure during that compensation is logged but never replaces
// the original error. Not crash-safe: a process crash mid-batch can leave
// orphans.
func (s *Store) StoreBatch(items []BatchItem, directory string) ([]*FileStorageResult, error) {
	results := make([]*FileStorageResult, 0, len(items))
	stored := make([]string, 0, len(items))

	for _, item := range items {
		result, err := s.Store(item.Data, item.Filename, directory)
		if err != nil {
			log.Warnf("[Storage] Rolling back batch, deleting %d stored files", len(stored))
			for _, ref := range stored {
				if _, delErr := s.Delete(ref); delErr != nil {
					log.Errorf("[Storage] Rollback delete failed for %s: %v", ref, delErr)
				}
			}
			return nil, err
		}
		results = append(results, result)
		stored = append(stored, result.FileReference)
	}

	return results, nil
}

// Retrieve reads the referenced file.
func (s *Store) Retrieve(fileReference string) ([]byte, error) {
	path, err := s.resolve(fileReference)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileReference)
		}
		return nil, fmt.Errorf("read file %s: %w", fileReference, err)
	}
	return data, nil
}

// Delete removes the referenced file. A missing file is not an error; the
// return value reports whether anything was removed.
func (s *Store) Delete(fileReference string) (bool, error) {
	path, err := s.resolve(fileReference)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warnf("[Storage] Attempted to delete non-existent file: %s", fileReference)
			return false, nil
		}
		return false, err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete file %s: %w", fileReference, err)
	}

	log.Infof("[Storage] Deleted %s", fileReference)
	return true, nil
}

// DeleteBatch deletes every reference, continuing past individual failures
// so cleanup is maximally effective. The result is the conjunction of the
// per-item outcomes; failures are logged.
func (s *Store) DeleteBatch(fileReferences []string) bool {
	allDeleted := true
	var failed []string

	for _, ref := range fileReferences {
		deleted, err := s.Delete(ref)
		if err != nil {
			allDeleted = false
			failed = append(failed, ref)
			log.Errorf("[Storage] Failed to delete %s: %v", ref, err)
			continue
		}
		if !deleted {
			allDeleted = false
			failed = append(failed, ref)
		}
	}

	if len(failed) > 0 {
		log.Warnf("[Storage] Failed to delete %d files: %v", len(failed), failed)
	}

	return allDeleted
}

// Exists never raises; any internal error is treated as "does not exist".
func (s *Store) Exists(fileReference string) bool {
	path, err := s.resolve(fileReference)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Metadata returns filesystem attributes for the referenced file.
func (s *Store) Metadata(fileReference string) (*FileMetadata, error) {
	path, err := s.resolve(fileReference)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, fileReference)
		}
		return nil, fmt.Errorf("stat file %s: %w", fileReference, err)
	}

	return &FileMetadata{
		Filename:    info.Name(),
		SizeBytes:   info.Size(),
		ContentType: probeContentType(path),
		CreatedAt:   info.ModTime(),
		ModifiedAt:  info.ModTime(),
	}, nil
}

// Move relocates a file into newDirectory under a freshly generated
// reference. Callers must use the returned reference; the old one is dead
// after this call.
func (s *Store) Move(fileReference, newDirectory string) (string, error) {
	newRef, targetPath, sourcePath, err := s.prepareRelocation(fileReference, newDirectory)
	if err != nil {
		return "", err
	}

	// Copy then delete rather than rename: safer across filesystems.
	if err := copyFile(sourcePath, targetPath); err != nil {
		return "", fmt.Errorf("move file %s: %w", fileReference, err)
	}
	if err := os.Remove(sourcePath); err != nil {
		log.Errorf("[Storage] Failed to remove source %s after move: %v", sourcePath, err)
	}

	log.Infof("[Storage] Moved %s -> %s", fileReference, newRef)
	return newRef, nil
}

// Copy duplicates a file into newDirectory under a freshly generated
// reference and returns it.
func (s *Store) Copy(fileReference, newDirectory string) (string, error) {
	newRef, targetPath, sourcePath, err := s.prepareRelocation(fileReference, newDirectory)
	if err != nil {
		return "", err
	}

	if err := copyFile(sourcePath, targetPath); err != nil {
		return "", fmt.Errorf("copy file %s: %w", fileReference, err)
	}

	log.Infof("[Storage] Copied %s -> %s", fileReference, newRef)
	return newRef, nil
}

func (s *Store) prepareRelocation(fileReference, newDirectory string) (newRef, targetPath, sourcePath string, err error) {
	sourcePath, err = s.resolve(fileReference)
	if err != nil {
		return "", "", "", err
	}
	if _, err = os.Stat(sourcePath); err != nil {
		if os.IsNotExist(err) {
			return "", "", "", fmt.Errorf("%w: %s", ErrNotFound, fileReference)
		}
		return "", "", "", fmt.Errorf("stat file %s: %w", fileReference, err)
	}

	targetDir := filepath.Join(s.root, newDirectory)
	if err = s.ensureInsideRoot(targetDir); err != nil {
		return "", "", "", err
	}
	if err = os.MkdirAll(targetDir, 0755); err != nil {
		return "", "", "", fmt.Errorf("create directory %s: %w", targetDir, err)
	}

	newRef = uuid.NewString() + "_" + filepath.Base(sourcePath)
	targetPath = filepath.Join(targetDir, newRef)

	if err = s.ensureInsideRoot(targetPath); err != nil {
		return "", "", "", err
	}
	return newRef, targetPath, sourcePath, nil
}

// resolve maps a file reference to a physical path. References containing a
// separator resolve directly under root; bare filenames fall back to a full
// recursive scan for the first regular file with that name. The scan is
// O(total files) per call and kept for callers that only hold a bare
// reference.
func (s *Store) resolve(fileReference string) (string, error) {
	if strings.TrimSpace(fileReference) == "" {
		return "", fmt.Errorf("%w: empty file reference", ErrValidation)
	}

	var path string
	if strings.ContainsAny(fileReference, "/\\") {
		path = filepath.Join(s.root, fileReference)
	} else {
		found, err := s.scanForFile(fileReference)
		if err != nil {
			return "", err
		}
		path = found
	}

	if err := s.ensureInsideRoot(path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) scanForFile(filename string) (string, error) {
	var found string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && d.Name() == filename {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("scan for %s: %w", filename, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return found, nil
}

// ensureInsideRoot rejects any path whose canonical form is not prefixed by
// the storage root. A violation signals either a bug or an attack and is
// never retried.
func (s *Store) ensureInsideRoot(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("canonicalize %s: %w", path, err)
	}
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		log.Errorf("[Storage] SECURITY: path escape attempt blocked: %s", path)
		return fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	return nil
}

func copyFile(source, destination string) error {
	sourceFile, err := os.Open(source)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		os.Remove(destination)
		return err
	}

	return destFile.Sync()
}

func probeContentType(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return "application/octet-stream"
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := f.Read(head)
	if err != nil && n == 0 {
		return "application/octet-stream"
	}
	return http.DetectContentType(head[:n])
}
