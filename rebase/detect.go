package rebase

import (
	"errors"
	"io"
	"os"

	"github.com/h2non/filetype"
)

// enough for any signature filetype knows about
const headerSize = 262

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return head[:n], nil
}

// isArchiveFile checks file signature, extension does not matter.
func isArchiveFile(path string) (bool, error) {
	head, err := readHeader(path)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}
