package updatelog

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xxxsen/thoughtspace/internal/pkg/timeutil"
)

type localConfig struct {
	Path string `json:"path"`
}

// localLog keeps the permission update log as a JSON-lines file, one
// record per line with the update payload base64-encoded.
type localLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

type localRecord struct {
	DocID  string `json:"docid"`
	Update string `json:"update"`
	Ctime  string `json:"ctime"`
}

func init() {
	Register("local", createLocalLog)
}

func createLocalLog(args interface{}) (Log, error) {
	config := &localConfig{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	return NewLocal(config.Path)
}

func NewLocal(path string) (Log, error) {
	if path == "" {
		return nil, fmt.Errorf("local log path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
	}
	return &localLog{path: path}, nil
}

func (l *localLog) Load(ctx context.Context) ([]Record, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec localRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("decode log line: %w", err)
		}
		update, err := base64.StdEncoding.DecodeString(rec.Update)
		if err != nil {
			return nil, fmt.Errorf("decode log payload: %w", err)
		}
		records = append(records, Record{DocID: rec.DocID, Update: update})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return records, nil
}

func (l *localLog) Append(ctx context.Context, rec Record) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log for append: %w", err)
		}
		l.file = file
	}
	line, err := encodeLine(rec)
	if err != nil {
		return err
	}
	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

func (l *localLog) Replace(ctx context.Context, recs []Record) error {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".permissions-*")
	if err != nil {
		return fmt.Errorf("create temp log: %w", err)
	}
	defer os.Remove(tmp.Name())
	for _, rec := range recs {
		line, err := encodeLine(rec)
		if err != nil {
			tmp.Close()
			return err
		}
		if _, err := tmp.Write(line); err != nil {
			tmp.Close()
			return fmt.Errorf("write temp log: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp log: %w", err)
	}
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("swap log: %w", err)
	}
	return nil
}

// Close releases the append handle. Load and Append reopen on demand.
func (l *localLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func encodeLine(rec Record) ([]byte, error) {
	line, err := json.Marshal(localRecord{
		DocID:  rec.DocID,
		Update: base64.StdEncoding.EncodeToString(rec.Update),
		Ctime:  timeutil.NowISO(),
	})
	if err != nil {
		return nil, fmt.Errorf("encode log line: %w", err)
	}
	return append(line, '\n'), nil
}
