package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var (
	// Word lists for generating memorable temporary passwords
	adjectives = []string{
		"quick", "bright", "calm", "bold", "clever", "swift", "wise", "brave",
		"gentle", "happy", "proud", "strong", "noble", "keen", "fair", "warm",
		"cool", "deep", "vivid", "grand", "royal", "stellar", "cosmic", "golden",
		"silver", "crystal", "prime", "vital", "super", "ultra", "mega", "epic",
	}

	nouns = []string{
		"tiger", "eagle", "dolphin", "phoenix", "dragon", "falcon", "panther", "wolf",
		"lion", "hawk", "bear", "fox", "owl", "shark", "lynx", "raven",
		"thunder", "storm", "ocean", "mountain", "river", "forest", "sun", "moon",
		"star", "comet", "galaxy", "nebula", "aurora", "meteor", "eclipse", "horizon",
	}

	specialChars = "!@#$%&*+=?"
)

// GeneratePassword creates a secure, memorable temporary password.
// Format: Adjective + Noun + Number + Special
// Example: BrightTiger42!, SwiftEagle87@, BoldDragon23#
func GeneratePassword() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random adjective: %w", err)
	}
	adjective := adjectives[adjIdx.Int64()]

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random noun: %w", err)
	}
	noun := nouns[nounIdx.Int64()]

	// 2-digit number (10-99)
	numVal, err := rand.Int(rand.Reader, big.NewInt(90))
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}
	number := fmt.Sprintf("%d", 10+numVal.Int64())

	specialIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(specialChars))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random special char: %w", err)
	}
	special := string(specialChars[specialIdx.Int64()])

	return capitalize(adjective) + capitalize(noun) + number + special, nil
}

// capitalize capitalizes the first letter of a string
func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(string(s[0])) + s[1:]
}
