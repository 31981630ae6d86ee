package protocol

import (
	"cam-relay/domain"
	"encoding/json"
	"fmt"
)

func StartMarker(totalSize int64, totalChunks int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", StartPrefix, totalSize, totalChunks))
}

func FragmentMarker(index int, data string) []byte {
	return []byte(fmt.Sprintf("%s%d:%s", FragmentPrefix, index, data))
}

// Split cuts an encoded payload into the ordered messages of one chunked transfer:
// a start marker, one fragment per chunkSize characters, and the end marker.
func Split(encoded string, chunkSize int) [][]byte {
	if chunkSize <= 0 {
		chunkSize = len(encoded)
	}
	var fragments []string
	for start := 0; start < len(encoded); start += chunkSize {
		end := min(start+chunkSize, len(encoded))
		fragments = append(fragments, encoded[start:end])
	}

	messages := make([][]byte, 0, len(fragments)+2)
	messages = append(messages, StartMarker(int64(len(encoded)), len(fragments)))
	for i, f := range fragments {
		messages = append(messages, FragmentMarker(i, f))
	}
	return append(messages, []byte(EndMarker))
}

func EncodeEnvelope(env domain.Envelope) ([]byte, error) {
	return json.Marshal(env)
}
