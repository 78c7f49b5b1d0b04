package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const formatVersion byte = 1

// ErrCorrupt is returned by Decode for blobs that are not a valid session record.
var ErrCorrupt = errors.New("session record corrupt")

// Encode serializes s into the compact binary record stored in Redis.
// The session id is the key and is not part of the record.
//
// Layout: version(1) | len(1) userID | len(1) loginType | createdAt unix ms (8, big endian).
func Encode(s *Session) ([]byte, error) {
	if s.UserID == "" {
		return nil, errors.New("session user id is empty")
	}
	var buf bytes.Buffer
	buf.Grow(2 + len(s.UserID) + 1 + len(s.LoginType) + 8)

	buf.WriteByte(formatVersion)
	if err := writeShortString(&buf, s.UserID); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	if err := writeShortString(&buf, s.LoginType); err != nil {
		return nil, fmt.Errorf("login type: %w", err)
	}
	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a record produced by Encode. Trailing bytes are rejected.
func Decode(data []byte) (*Session, error) {
	r := bytes.NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, ErrCorrupt
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorrupt, version)
	}

	s := &Session{}
	if s.UserID, err = readShortString(r); err != nil || s.UserID == "" {
		return nil, ErrCorrupt
	}
	if s.LoginType, err = readShortString(r); err != nil {
		return nil, ErrCorrupt
	}
	var createdMillis int64
	if err := binary.Read(r, binary.BigEndian, &createdMillis); err != nil {
		return nil, ErrCorrupt
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrCorrupt)
	}
	s.CreatedAt = time.UnixMilli(createdMillis).UTC()
	return s, nil
}

func writeShortString(buf *bytes.Buffer, v string) error {
	if len(v) > 255 {
		return errors.New("value too long")
	}
	buf.WriteByte(byte(len(v)))
	buf.WriteString(v)
	return nil
}

func readShortString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
