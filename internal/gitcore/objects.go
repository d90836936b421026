package gitcore

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrCorruptObject marks a loose object that exists but cannot be decoded.
var ErrCorruptObject = errors.New("corrupt object")

const (
	parentPrefix = "parent "
	authorPrefix = "author "
)

// maxHeaderLine bounds a single commit header line when scanning for parents.
const maxHeaderLine = 1 << 20

// ObjectPath returns the loose object path for id: objects/<first 2>/<rest>.
func (r *Repository) ObjectPath(id Hash) string {
	s := string(id)
	return filepath.Join(r.gitDir, "objects", s[:2], s[2:])
}

// ReadObject locates and decompresses the loose object named id.
// A missing object (or a directory in its place) is reported as found == false
// with a nil error; history may legitimately reference commits that were never
// fetched. A file that fails to decompress or lacks a valid header is an
// ErrCorruptObject.
func (r *Repository) ReadObject(id Hash) (obj *Object, found bool, err error) {
	if len(id) < 3 {
		return nil, false, nil
	}

	path := r.ObjectPath(id)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to stat object %s: %w", id, err)
	}
	if info.IsDir() {
		return nil, false, nil
	}

	raw, err := r.readObject(path)
	if err != nil {
		return nil, false, fmt.Errorf("%w %s: %v", ErrCorruptObject, id, err)
	}

	obj, err = parseObject(id, raw)
	if err != nil {
		return nil, false, err
	}
	return obj, true, nil
}

func (r *Repository) readObject(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	zr, err := zlib.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// parseObject splits a decompressed object into its "<type> <size>" header and payload.
func parseObject(id Hash, raw []byte) (*Object, error) {
	nullIdx := bytes.IndexByte(raw, 0)
	if nullIdx == -1 {
		return nil, fmt.Errorf("%w %s: missing header separator", ErrCorruptObject, id)
	}

	header := string(raw[:nullIdx])
	typeName, sizeStr, ok := strings.Cut(header, " ")
	if !ok {
		return nil, fmt.Errorf("%w %s: invalid header %q", ErrCorruptObject, id, header)
	}
	size, err := strconv.Atoi(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("%w %s: invalid object size %q", ErrCorruptObject, id, sizeStr)
	}

	return &Object{
		ID:   id,
		Type: StrToObjectType(typeName),
		Size: size,
		Data: raw[nullIdx+1:],
	}, nil
}

// ParseParents extracts the parent identifiers of a commit payload, in the
// order they are written. Parent lines always precede the author line, so
// scanning stops there and never reaches the free-text message.
func ParseParents(content []byte) []Hash {
	var parents []Hash
	seen := make(map[Hash]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 4096), maxHeaderLine)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, authorPrefix) {
			break
		}
		if !strings.HasPrefix(line, parentPrefix) {
			continue
		}

		parent := Hash(strings.TrimPrefix(line, parentPrefix))
		if _, dup := seen[parent]; dup {
			continue
		}
		seen[parent] = struct{}{}
		parents = append(parents, parent)
	}

	return parents
}

// ReadCommit reads and fully parses the commit named id.
func (r *Repository) ReadCommit(id Hash) (*Commit, bool, error) {
	obj, found, err := r.ReadObject(id)
	if err != nil || !found {
		return nil, found, err
	}
	if obj.Type != CommitObject {
		return nil, false, fmt.Errorf("object %s is a %s, not a commit", id, obj.Type)
	}

	commit, err := r.parseCommitBody(obj.Data, id)
	if err != nil {
		return nil, false, err
	}
	return commit, true, nil
}

func (r *Repository) parseCommitBody(body []byte, id Hash) (*Commit, error) {
	headers, message, _ := strings.Cut(string(body), "\n\n")

	commit := &Commit{
		ID:      id,
		Parents: ParseParents(body),
		Message: strings.TrimSpace(message),
	}

	for _, line := range strings.Split(headers, "\n") {
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}

		switch key {
		case "tree":
			commit.Tree = Hash(value)
		case "author":
			sig, err := NewSignature(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s author: %w", id, err)
			}
			commit.Author = sig
		case "committer":
			sig, err := NewSignature(value)
			if err != nil {
				return nil, fmt.Errorf("commit %s committer: %w", id, err)
			}
			commit.Committer = sig
		}
	}

	return commit, nil
}
