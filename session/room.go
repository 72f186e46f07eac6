/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	crand "crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	RoomKeyLength = 6
	RoomKeyChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	maxRoomKeyLength = 64
)

// NewRoomKey returns a fresh upper-case room code. Uniqueness is by chance
// only; nothing reserves the key.
func NewRoomKey() (string, error) {
	limit := big.NewInt(int64(len(RoomKeyChars)))

	code := make([]byte, RoomKeyLength)
	for i := range code {
		n, err := crand.Int(crand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		code[i] = RoomKeyChars[n.Int64()]
	}

	return string(code), nil
}

// NormalizeRoomKey turns user input into the key used for lookups.
func NormalizeRoomKey(s string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" || len(key) > maxRoomKeyLength {
		return "", ErrInvalidRoomKey
	}

	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidRoomKey, r)
		}
	}

	return key, nil
}
