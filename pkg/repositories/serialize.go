package repositories

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cbodonnell/gametable/pkg/gamestate"
	"github.com/klauspost/compress/zstd"
)

// encodeState serializes a full state to zstd-compressed JSON for
// storage. Snapshot blobs can get large for long-running rooms, mostly
// from the game logs.
func encodeState(state gamestate.FullState) ([]byte, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %v", err)
	}

	compressed := bytes.NewBuffer(nil)
	compWriter, err := zstd.NewWriter(compressed, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %v", err)
	}
	if _, err := compWriter.Write(b); err != nil {
		return nil, fmt.Errorf("failed to compress state: %v", err)
	}
	if err := compWriter.Close(); err != nil {
		return nil, fmt.Errorf("failed to close zstd writer: %v", err)
	}

	return compressed.Bytes(), nil
}

func decodeState(data []byte) (gamestate.FullState, error) {
	var state gamestate.FullState

	compReader, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return state, fmt.Errorf("failed to create zstd reader: %v", err)
	}
	defer compReader.Close()

	b, err := io.ReadAll(compReader)
	if err != nil {
		return state, fmt.Errorf("failed to read decompressed state: %v", err)
	}

	if err := json.Unmarshal(b, &state); err != nil {
		return state, fmt.Errorf("failed to unmarshal state: %v", err)
	}

	return state, nil
}
