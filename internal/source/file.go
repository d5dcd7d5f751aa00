package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// File reads the spreadsheet from local disk.
type File struct {
	Path     string
	MaxBytes int64 // 0 disables the limit
}

// NewFile returns a File source for path.
func NewFile(path string, maxBytes int64) *File {
	return &File{Path: path, MaxBytes: maxBytes}
}

func (f *File) Describe() Descriptor {
	return Descriptor{Mode: ModeFile, Identifier: f.Path}
}

func (f *File) Acquire(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: KindNotFound, Source: f.Describe(), Err: err}
		}
		return nil, fmt.Errorf("open source file: %w", err)
	}
	defer fh.Close()

	return readLimited(fh, f.MaxBytes, f.Describe())
}

// readLimited reads r fully, failing with KindTooLarge past max bytes.
func readLimited(r io.Reader, max int64, d Descriptor) ([]byte, error) {
	if max <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read source: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	if int64(len(data)) > max {
		return nil, &Error{Kind: KindTooLarge, Source: d, Detail: fmt.Sprintf("limit %d bytes", max)}
	}
	return data, nil
}
