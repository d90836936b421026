package gitcore

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ObjectType denotes the type of a Git object as written in its header.
type ObjectType int

const (
	NoneObject   ObjectType = 0
	CommitObject ObjectType = 1
	TreeObject   ObjectType = 2
	BlobObject   ObjectType = 3
	TagObject    ObjectType = 4
)

func StrToObjectType(s string) ObjectType {
	switch s {
	case "commit":
		return CommitObject
	case "tree":
		return TreeObject
	case "blob":
		return BlobObject
	case "tag":
		return TagObject
	default:
		return NoneObject
	}
}

func (t ObjectType) String() string {
	switch t {
	case CommitObject:
		return "commit"
	case TreeObject:
		return "tree"
	case BlobObject:
		return "blob"
	case TagObject:
		return "tag"
	default:
		return "none"
	}
}

// Object is a decompressed loose object: its header fields and the payload
// that follows the NUL separator.
type Object struct {
	ID   Hash
	Type ObjectType
	Size int
	Data []byte
}

// Commit represents a Git commit object with its metadata and relationships.
type Commit struct {
	ID        Hash
	Tree      Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   string
}

// Signature represents a Git author or committer signature with name, email, and timestamp.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// NewSignature parses a signature line in the format "Name <email> timestamp tz".
func NewSignature(signLine string) (Signature, error) {
	open := strings.IndexByte(signLine, '<')
	closing := strings.LastIndexByte(signLine, '>')
	if open < 0 || closing < open {
		return Signature{}, fmt.Errorf("invalid signature line: %q", signLine)
	}

	fields := strings.Fields(signLine[closing+1:])
	if len(fields) < 1 {
		return Signature{}, fmt.Errorf("invalid signature line: %q", signLine)
	}
	unixTime, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("invalid signature timestamp %q: %w", fields[0], err)
	}

	when := time.Unix(unixTime, 0)
	if len(fields) > 1 {
		if loc, ok := parseTimezone(fields[1]); ok {
			when = when.In(loc)
		}
	}

	return Signature{
		Name:  strings.TrimSpace(signLine[:open]),
		Email: strings.TrimSpace(signLine[open+1 : closing]),
		When:  when,
	}, nil
}

// parseTimezone converts a "+hhmm" / "-hhmm" offset into a fixed zone.
func parseTimezone(tz string) (*time.Location, bool) {
	if len(tz) != 5 || (tz[0] != '+' && tz[0] != '-') {
		return nil, false
	}
	hours, err := strconv.Atoi(tz[1:3])
	if err != nil {
		return nil, false
	}
	minutes, err := strconv.Atoi(tz[3:5])
	if err != nil {
		return nil, false
	}
	offset := hours*3600 + minutes*60
	if tz[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(tz, offset), true
}

// Summary returns the first line of the commit message.
func (c *Commit) Summary() string {
	summary, _, _ := strings.Cut(c.Message, "\n")
	return summary
}
