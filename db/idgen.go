package db

import (
	"encoding/binary"
	"strconv"

	"github.com/google/uuid"
)

// GenerateId returns a short base36 token taken from the random bits of a
// v4 uuid. Collisions are improbable but never checked.
func GenerateId() string {
	id := uuid.New()
	return strconv.FormatUint(binary.BigEndian.Uint64(id[:8]), 36)
}
