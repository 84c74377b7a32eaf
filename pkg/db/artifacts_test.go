package db

import (
	"testing"

	"github.com/dtnitsch/booking-scraper/models"
)

func TestInsertArtifact(t *testing.T) {
	db := setupTestDB(t)

	runID := insertTestRun(t, db, "https://www.booking.com/searchresults.html?ss=Paris", models.ModeBrowser)

	hash := "abc123def456"
	path := "scrape-results/1/snapshot.html"
	size := int64(1024)

	artifactID, err := db.InsertArtifact(runID, ArtifactSnapshot, hash, path, size)
	if err != nil {
		t.Fatalf("InsertArtifact() failed: %v", err)
	}
	if artifactID == 0 {
		t.Error("InsertArtifact() returned 0 ID")
	}

	var gotHash, gotPath string
	var gotSize int64
	err = db.QueryRow(`
		SELECT content_hash, file_path, size_bytes
		FROM artifacts WHERE artifact_id = ?
	`, artifactID).Scan(&gotHash, &gotPath, &gotSize)
	if err != nil {
		t.Fatalf("failed to query artifact: %v", err)
	}

	if gotHash != hash {
		t.Errorf("content_hash = %q, want %q", gotHash, hash)
	}
	if gotPath != path {
		t.Errorf("file_path = %q, want %q", gotPath, path)
	}
	if gotSize != size {
		t.Errorf("size_bytes = %d, want %d", gotSize, size)
	}
}

func TestInsertArtifact_UpdatesExisting(t *testing.T) {
	db := setupTestDB(t)

	runID := insertTestRun(t, db, "https://www.booking.com/searchresults.html?ss=Paris", models.ModeBrowser)

	firstID, err := db.InsertArtifact(runID, ArtifactSnapshot, "hash1", "first.html", 10)
	if err != nil {
		t.Fatalf("InsertArtifact() failed: %v", err)
	}
	secondID, err := db.InsertArtifact(runID, ArtifactSnapshot, "hash2", "second.html", 20)
	if err != nil {
		t.Fatalf("InsertArtifact() second failed: %v", err)
	}
	if firstID != secondID {
		t.Errorf("artifact ID changed on update: %d -> %d", firstID, secondID)
	}

	path, err := db.GetArtifactPath(runID, ArtifactSnapshot)
	if err != nil {
		t.Fatalf("GetArtifactPath() error = %v", err)
	}
	if path != "second.html" {
		t.Errorf("GetArtifactPath() = %q, want %q", path, "second.html")
	}
}

func TestGetArtifactTypeID(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name     string
		typeName string
		wantErr  bool
	}{
		{"snapshot", ArtifactSnapshot, false},
		{"records", ArtifactRecords, false},
		{"sheet", ArtifactSheet, false},
		{"unknown type", "html_raw", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typeID, err := db.GetArtifactTypeID(tt.typeName)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetArtifactTypeID() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && typeID == 0 {
				t.Error("GetArtifactTypeID() returned 0")
			}
		})
	}
}

func TestListArtifacts(t *testing.T) {
	db := setupTestDB(t)

	runID := insertTestRun(t, db, "https://www.booking.com/searchresults.html?ss=Paris", models.ModeBrowser)
	for _, typeName := range []string{ArtifactSnapshot, ArtifactSheet, ArtifactRecords} {
		if _, err := db.InsertArtifact(runID, typeName, "h", typeName+".out", 1); err != nil {
			t.Fatal(err)
		}
	}

	artifacts, err := db.ListArtifacts(runID)
	if err != nil {
		t.Fatalf("ListArtifacts() error = %v", err)
	}
	if len(artifacts) != 3 {
		t.Fatalf("ListArtifacts() = %d, want 3", len(artifacts))
	}
	if artifacts[0].TypeName != ArtifactRecords || artifacts[2].TypeName != ArtifactSnapshot {
		t.Errorf("artifacts not sorted by type: %+v", artifacts)
	}

	if _, err := db.GetArtifactPath(runID+1, ArtifactSnapshot); err == nil {
		t.Error("GetArtifactPath() for missing run should return error")
	}
}
