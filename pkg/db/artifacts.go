package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Artifact type names seeded by the schema.
const (
	ArtifactSnapshot = "snapshot"
	ArtifactRecords  = "records"
	ArtifactSheet    = "sheet"
)

// ArtifactInfo represents artifact metadata.
type ArtifactInfo struct {
	ArtifactID  int64     `json:"artifact_id" yaml:"artifact_id"`
	TypeName    string    `json:"type" yaml:"type"`
	ContentHash string    `json:"content_hash" yaml:"content_hash"`
	FilePath    string    `json:"file_path" yaml:"file_path"`
	SizeBytes   int64     `json:"size_bytes" yaml:"size_bytes"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// GetArtifactTypeID retrieves the type_id for a given artifact type name.
func (db *DB) GetArtifactTypeID(typeName string) (int64, error) {
	var typeID int64
	err := db.QueryRow("SELECT type_id FROM artifact_types WHERE type_name = ?", typeName).Scan(&typeID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("unknown artifact type: %s", typeName)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get artifact type ID: %w", err)
	}
	return typeID, nil
}

// InsertArtifact inserts or updates a run's artifact of the given type, returning the artifact_id.
func (db *DB) InsertArtifact(runID int64, typeName, contentHash, filePath string, sizeBytes int64) (int64, error) {
	typeID, err := db.GetArtifactTypeID(typeName)
	if err != nil {
		return 0, err
	}

	_, err = db.Exec(`
		INSERT INTO artifacts (run_id, type_id, content_hash, file_path, size_bytes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, type_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			file_path = excluded.file_path,
			size_bytes = excluded.size_bytes,
			created_at = CURRENT_TIMESTAMP
	`, runID, typeID, contentHash, filePath, sizeBytes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert artifact: %w", err)
	}

	var artifactID int64
	err = db.QueryRow("SELECT artifact_id FROM artifacts WHERE run_id = ? AND type_id = ?", runID, typeID).Scan(&artifactID)
	if err != nil {
		return 0, fmt.Errorf("failed to get artifact ID: %w", err)
	}
	return artifactID, nil
}

// GetArtifactPath returns the file path of a run's artifact.
func (db *DB) GetArtifactPath(runID int64, typeName string) (string, error) {
	var path string
	err := db.QueryRow(`
		SELECT a.file_path
		FROM artifacts a
		JOIN artifact_types t ON a.type_id = t.type_id
		WHERE a.run_id = ? AND t.type_name = ?
	`, runID, typeName).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no %s artifact for run %d", typeName, runID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get artifact path: %w", err)
	}
	return path, nil
}

// ListArtifacts returns all artifacts for a run.
func (db *DB) ListArtifacts(runID int64) ([]ArtifactInfo, error) {
	rows, err := db.Query(`
		SELECT a.artifact_id, t.type_name, a.content_hash, a.file_path, a.size_bytes, a.created_at
		FROM artifacts a
		JOIN artifact_types t ON a.type_id = t.type_id
		WHERE a.run_id = ?
		ORDER BY t.type_name
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []ArtifactInfo
	for rows.Next() {
		var artifact ArtifactInfo
		err := rows.Scan(&artifact.ArtifactID, &artifact.TypeName, &artifact.ContentHash, &artifact.FilePath, &artifact.SizeBytes, &artifact.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}

	return artifacts, rows.Err()
}
