package watermark

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"quizstats/internal/assert"
	"quizstats/internal/quiz"

	"github.com/goccy/go-json"
)

type fileState struct {
	LastGameID   quiz.RecordID `json:"last_game_id"`
	PendingBatch string        `json:"pending_batch,omitempty"`
}

// FileStore keeps the watermark in a small json file,
// ex. {"last_game_id": 93120}
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	assert.NotEmptyStr(path, "path")
	return FileStore{path: path}
}

func (s FileStore) read() (fileState, error) {
	buff, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return fileState{}, nil
	}
	if err != nil {
		return fileState{}, fmt.Errorf("read watermark: %w", err)
	}

	var state fileState
	err = json.Unmarshal(buff, &state)
	if err != nil {
		return fileState{}, fmt.Errorf("decode watermark %s: %w", s.path, err)
	}
	return state, nil
}

// write replaces the file through a rename so a crash never leaves a
// truncated watermark behind.
func (s FileStore) write(state fileState) error {
	buff, err := json.Marshal(state)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return fmt.Errorf("create watermark dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".watermark-*")
	if err != nil {
		return fmt.Errorf("create watermark: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(buff)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write watermark: %w", err)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		return fmt.Errorf("replace watermark: %w", err)
	}
	return nil
}

func (s FileStore) Load(ctx context.Context) (quiz.RecordID, error) {
	state, err := s.read()
	if err != nil {
		return 0, err
	}
	return state.LastGameID, nil
}

func (s FileStore) Save(ctx context.Context, id quiz.RecordID) error {
	return s.write(fileState{LastGameID: id})
}

func (s FileStore) Begin(ctx context.Context, batch string) error {
	assert.NotEmptyStr(batch, "batch")
	state, err := s.read()
	if err != nil {
		return err
	}
	state.PendingBatch = batch
	return s.write(state)
}

func (s FileStore) Pending(ctx context.Context) (string, error) {
	state, err := s.read()
	if err != nil {
		return "", err
	}
	return state.PendingBatch, nil
}
