package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"

	"github.com/mini-docker/mini-docker/internal/types"
)

// nameRetries is how many times we draw a fresh adjective-animal pair
// before giving up and appending a numeric suffix to the last draw.
const nameRetries = 20

// NewContainerID returns a random 12-lowercase-hex container ID.
func NewContainerID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails if the kernel entropy device is broken
		panic(fmt.Sprintf("id generation: %v", err))
	}
	return hex.EncodeToString(buf)
}

// NewPodID and NewImageID use full UUIDs: pods and images are not
// addressed by short-prefix the way containers are.
func NewPodID() string   { return uuid.NewString() }
func NewImageID() string { return uuid.NewString() }

func randIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("name generation: %v", err))
	}
	return int(v.Int64())
}

func randomName() string {
	adj := types.Adjectives[randIndex(len(types.Adjectives))]
	animal := types.Animals[randIndex(len(types.Animals))]
	return adj + "-" + animal
}

// GenerateName draws "<adjective>-<animal>" names until taken() reports
// one free, retrying up to nameRetries times, then falls back to
// appending -2, -3, ... to the last draw.
func GenerateName(taken func(string) bool) string {
	var name string
	for i := 0; i < nameRetries; i++ {
		name = randomName()
		if !taken(name) {
			return name
		}
	}

	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", name, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
