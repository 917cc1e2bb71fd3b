package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
)

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput clears `dir` and writes every message into it.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

func (o FilesystemOutput) Path(id string) string {
	return filepath.Join(o.directory, id)
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(o.Path(id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
