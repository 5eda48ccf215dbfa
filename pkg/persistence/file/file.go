// Package file provides file-based persistence for workflows, assignments
// and applications. Documents are JSON files under a root directory; all
// operations are serialized by a single mutex, which also gives transitions
// their atomicity.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/lumenlms/approvalflow/pkg/models"
)

const (
	workflowsDir    = "workflows"
	assignmentsDir  = "assignments"
	approversDir    = "approvers"
	applicationsDir = "applications"
	activitiesDir   = "activities"

	sequenceFile = "sequence.json"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root string
	mu   sync.Mutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// nextID hands out the next identifier for the given entity kind from the
// sequence document. Caller must hold the mutex.
func (fp *Persistence) nextID(kind string) (int64, error) {
	sequences := make(map[string]int64)

	seqPath := filepath.Clean(path.Join(fp.root, sequenceFile))

	body, err := os.ReadFile(seqPath)
	if err == nil {
		if err := json.Unmarshal(body, &sequences); err != nil {
			return 0, fmt.Errorf("failed to unmarshal sequence document: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read sequence document: %w", err)
	}

	sequences[kind]++

	data, err := json.MarshalIndent(sequences, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal sequence document: %w", err)
	}

	if err := fp.writeAtomic(seqPath, data); err != nil {
		return 0, err
	}

	return sequences[kind], nil
}

// writeAtomic writes a document through a temp file and rename so readers
// never observe a half-written file.
func (fp *Persistence) writeAtomic(filePath string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filePath, err)
	}

	tmpPath := filePath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, filePath); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}

	return nil
}

func (fp *Persistence) docPath(dir string, id int64) string {
	return filepath.Clean(path.Join(fp.root, dir, strconv.FormatInt(id, 10)+".json"))
}

// readDoc unmarshals one document into out. Returns os.ErrNotExist when the
// document is absent.
func (fp *Persistence) readDoc(dir string, id int64, out any) error {
	body, err := os.ReadFile(fp.docPath(dir, id))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s/%d: %w", dir, id, err)
	}

	return nil
}

func (fp *Persistence) writeDoc(dir string, id int64, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s/%d: %w", dir, id, err)
	}

	return fp.writeAtomic(fp.docPath(dir, id), data)
}

// eachDoc invokes fn for every document in dir, decoding each file into a
// fresh T.
func eachDoc[T any](fp *Persistence, dir string, fn func(*T) error) error {
	entries, err := os.ReadDir(path.Join(fp.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		body, err := os.ReadFile(filepath.Clean(path.Join(fp.root, dir, entry.Name())))
		if err != nil {
			return fmt.Errorf("failed to read %s/%s: %w", dir, entry.Name(), err)
		}

		doc := new(T)
		if err := json.Unmarshal(body, doc); err != nil {
			return fmt.Errorf("failed to unmarshal %s/%s: %w", dir, entry.Name(), err)
		}

		if err := fn(doc); err != nil {
			return err
		}
	}

	return nil
}

// applicationFK extracts the named foreign-key field from an application row.
func applicationFK(app *models.Application, fkField string) (int64, bool) {
	switch fkField {
	case "workflow_version_id":
		return app.WorkflowVersionID, true
	case "assignment_id":
		return app.AssignmentID, true
	case "current_stage_id":
		return app.CurrentStageID, true
	case "current_approval_level_id":
		if app.CurrentApprovalLevelID == nil {
			return 0, false
		}

		return *app.CurrentApprovalLevelID, true
	}

	return 0, false
}
