package server

import (
	"errors"
	"math/rand"
	"strings"
)

const roomCodeLength = 4

// GenerateRoomCode draws random A-Z codes until taken reports one as free.
func GenerateRoomCode(taken func(code string) bool) string {
	for {
		code := make([]byte, roomCodeLength)
		for i := range code {
			code[i] = 'A' + byte(rand.Intn(26))
		}
		roomCode := string(code)

		if !taken(roomCode) {
			return roomCode
		}
	}
}

var ErrInvalidRoomCode = errors.New("InvalidRoomCode: Room code must be 4 letters A-Z")

// ParseRoomCode accepts a code as a player would type it, in any case and
// with surrounding spaces, and returns its canonical form.
func ParseRoomCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != roomCodeLength {
		return "", ErrInvalidRoomCode
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", ErrInvalidRoomCode
		}
	}
	return code, nil
}
