package engine

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

const (
	maxLoopPatternLen = 3
	loopRepetitions   = 3
)

// toolCallSignature fingerprints one tool call as name plus a hash of its
// input, so identical calls compare equal without keeping full arguments.
func toolCallSignature(name string, input json.RawMessage) string {
	sum := sha256.Sum256(input)
	return fmt.Sprintf("%s:%x", name, sum[:8])
}

// detectLoop reports whether the signature history ends in a pattern of
// length 1 to maxLoopPatternLen repeated loopRepetitions times in a row.
func detectLoop(signatures []string) bool {
	for patternLen := 1; patternLen <= maxLoopPatternLen; patternLen++ {
		need := patternLen * loopRepetitions
		if len(signatures) < need {
			continue
		}
		window := signatures[len(signatures)-need:]
		match := true
		for i := patternLen; i < need; i++ {
			if window[i] != window[i%patternLen] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
