package artifact_manager

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	DefaultBaseDir = "scrape-results"
	CacheDir       = "cache"

	SnapshotFile = "snapshot.html"
	RecordsFile  = "records.yaml"
)

// GetRunDir returns the directory for a specific run ID.
// Example: scrape-results/42/
func GetRunDir(baseDir string, runID int64) string {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return filepath.Join(baseDir, fmt.Sprintf("%d", runID))
}

// GetRunArtifactPath returns the full path for a specific artifact.
// Example: scrape-results/42/snapshot.html
func GetRunArtifactPath(baseDir string, runID int64, artifact string) string {
	return filepath.Join(GetRunDir(baseDir, runID), artifact)
}

// Manager handles storage and retrieval of scrape artifacts.
type Manager struct {
	baseDir string
	maxAge  time.Duration // Max age for a cached page before it's considered stale
}

// NewManager creates a new Artifact Manager instance rooted at baseDir.
func NewManager(baseDir string, maxAge time.Duration) (*Manager, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &Manager{baseDir: baseDir, maxAge: maxAge}, nil
}

func (m *Manager) BaseDir() string {
	return m.baseDir
}

// MaxAge returns the configured max age for cached pages.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// WriteFile writes data to path, creating parent directories and replacing any existing file.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// EnsureRunDir ensures the directory for a run ID exists.
func (m *Manager) EnsureRunDir(runID int64) error {
	runDir := GetRunDir(m.baseDir, runID)
	if err := os.MkdirAll(runDir, 0750); err != nil {
		return fmt.Errorf("failed to create run directory: %w", err)
	}
	return nil
}

// SetSnapshotByRunID stores the captured document for a run.
// Writes to scrape-results/{run_id}/snapshot.html and returns the path.
func (m *Manager) SetSnapshotByRunID(runID int64, html []byte) (string, error) {
	return m.setRunArtifact(runID, SnapshotFile, html)
}

// GetSnapshotByRunID reads back the document captured by a run.
func (m *Manager) GetSnapshotByRunID(runID int64) ([]byte, bool, error) {
	return readArtifact(GetRunArtifactPath(m.baseDir, runID, SnapshotFile))
}

// SetRecordsByRunID stores the extracted records for a run.
// Writes to scrape-results/{run_id}/records.yaml and returns the path.
func (m *Manager) SetRecordsByRunID(runID int64, data []byte) (string, error) {
	return m.setRunArtifact(runID, RecordsFile, data)
}

func (m *Manager) GetRecordsByRunID(runID int64) ([]byte, bool, error) {
	return readArtifact(GetRunArtifactPath(m.baseDir, runID, RecordsFile))
}

func (m *Manager) setRunArtifact(runID int64, name string, data []byte) (string, error) {
	if err := m.EnsureRunDir(runID); err != nil {
		return "", err
	}
	filePath := GetRunArtifactPath(m.baseDir, runID, name)
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return filePath, nil
}

func readArtifact(filePath string) ([]byte, bool, error) {
	data, err := os.ReadFile(filepath.Clean(filePath))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("error reading %s: %w", filePath, err)
	}
	return data, true, nil
}

// GetCachedPage returns a previously fetched page body if it is younger than maxAge.
// A zero maxAge disables the cache; a negative one never expires.
func (m *Manager) GetCachedPage(rawURL string) ([]byte, bool, error) {
	if m.maxAge == 0 {
		return nil, false, nil
	}
	filePath, err := m.GetArtifactPath(CacheDir, rawURL, ".html")
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return nil, false, nil // Not found
	}
	if err != nil {
		return nil, false, fmt.Errorf("error statting cached page: %w", err)
	}
	if m.maxAge > 0 && time.Since(info.ModTime()) > m.maxAge {
		return nil, false, nil // Stale
	}
	return readArtifact(filePath)
}

// SetCachedPage stores a fetched page body keyed by its normalized URL.
func (m *Manager) SetCachedPage(rawURL string, data []byte) error {
	if m.maxAge == 0 {
		return nil
	}
	filePath, err := m.GetArtifactPath(CacheDir, rawURL, ".html")
	if err != nil {
		return err
	}
	return WriteFile(filePath, data)
}

// GetArtifactPath constructs a stable file path for a URL-keyed artifact.
func (m *Manager) GetArtifactPath(artifactDir, rawURL string, ext string) (string, error) {
	normalizedURL, err := normalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	slug := sanitizeSlug(rawURL)
	shortHash := getShortHash(normalizedURL)

	filename := fmt.Sprintf("%s-%s%s", slug, shortHash, ext)
	return filepath.Join(m.baseDir, artifactDir, filename), nil
}

// normalizeURL creates a canonical representation of a URL for consistent hashing.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)

	// Sort query parameters alphabetically
	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sortedQuery := url.Values{}
		for _, k := range keys {
			for _, v := range params[k] {
				sortedQuery.Add(k, v)
			}
		}
		u.RawQuery = sortedQuery.Encode()
	}
	u.Fragment = ""

	return u.String(), nil
}

// ContentHash returns the hex sha256 of an artifact's bytes.
func ContentHash(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

func getShortHash(normalizedURL string) string {
	hash := sha256.Sum256([]byte(normalizedURL))
	return fmt.Sprintf("%x", hash[:6])
}

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

// sanitizeSlug creates a filesystem-safe slug from a URL path.
func sanitizeSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		safe := invalidFilenameChar.ReplaceAllString(rawURL, "_")
		return strings.Trim(safe, "_")
	}

	hostPart := strings.ReplaceAll(u.Host, ".", "_")
	pathPart := strings.TrimPrefix(u.Path, "/")
	pathPart = invalidFilenameChar.ReplaceAllString(pathPart, "_")
	pathPart = strings.Trim(pathPart, "_")

	if pathPart == "" {
		return hostPart
	}
	return fmt.Sprintf("%s_%s", hostPart, pathPart)
}
