package passcode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const passcodeFileName = "passcodes.json"

// FileRepository implements Repository using a JSON file
type FileRepository struct {
	dataDir   string
	passcodes table
	mutex     sync.RWMutex
}

// NewFileRepository creates a file-based repository rooted at dataDir
func NewFileRepository(dataDir string) (*FileRepository, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRepository{
		dataDir:   dataDir,
		passcodes: make(table),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRepository) InvalidateActive(ctx context.Context, userRef string, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := r.passcodes.invalidateActive(userRef)
	if len(removed) == 0 {
		return 0, nil
	}

	if err := r.save(); err != nil {
		// Rollback
		r.passcodes.restore(removed)
		return 0, fmt.Errorf("failed to save: %w", err)
	}

	return int64(len(removed)), nil
}

func (r *FileRepository) Create(ctx context.Context, params CreateParams) (Passcode, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p := r.passcodes.create(params)
	if err := r.save(); err != nil {
		delete(r.passcodes, p.ID)
		return Passcode{}, fmt.Errorf("failed to save: %w", err)
	}

	return p, nil
}

func (r *FileRepository) Issue(ctx context.Context, params CreateParams) (Passcode, error) {
	if err := ctx.Err(); err != nil {
		return Passcode{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := r.passcodes.invalidateActive(params.UserRef)
	p := r.passcodes.create(params)

	if err := r.save(); err != nil {
		delete(r.passcodes, p.ID)
		r.passcodes.restore(removed)
		return Passcode{}, fmt.Errorf("failed to save: %w", err)
	}

	return p, nil
}

func (r *FileRepository) ConsumeByCode(ctx context.Context, code string, now time.Time) (Passcode, error) {
	if err := ctx.Err(); err != nil {
		return Passcode{}, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, ok := r.passcodes.consume(code, now)
	if !ok {
		return Passcode{}, ErrPasscodeNotFound
	}

	if err := r.save(); err != nil {
		p.ConsumedAt = nil
		r.passcodes[p.ID] = p
		return Passcode{}, fmt.Errorf("failed to save: %w", err)
	}

	return p, nil
}

func (r *FileRepository) FindActiveByUser(ctx context.Context, userRef string, now time.Time) ([]Passcode, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.passcodes.activeByUser(userRef, now), nil
}

func (r *FileRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	expired := r.passcodes.expired(now)
	if len(expired) == 0 {
		return 0, nil
	}
	for _, p := range expired {
		delete(r.passcodes, p.ID)
	}

	if err := r.save(); err != nil {
		r.passcodes.restore(expired)
		return 0, fmt.Errorf("failed to save: %w", err)
	}

	return int64(len(expired)), nil
}

// load reads passcodes from file
func (r *FileRepository) load() error {
	filePath := filepath.Join(r.dataDir, passcodeFileName)

	// If file doesn't exist, start with empty map
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var passcodes []Passcode
	if err := json.Unmarshal(data, &passcodes); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.passcodes = make(table)
	r.passcodes.restore(passcodes)

	return nil
}

// save writes passcodes to file atomically
func (r *FileRepository) save() error {
	passcodes := make([]Passcode, 0, len(r.passcodes))
	for _, p := range r.passcodes {
		passcodes = append(passcodes, p)
	}

	data, err := json.MarshalIndent(passcodes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Write to temp file first
	tempFile := filepath.Join(r.dataDir, passcodeFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Atomic rename
	finalFile := filepath.Join(r.dataDir, passcodeFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
