package upload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// probeWAVDuration computes a WAV file's duration from its RIFF header:
// data chunk length divided by the fmt chunk's byte rate. Compressed formats
// carry no comparable header and fall back to the caller-declared duration.
func probeWAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var riff [12]byte
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0, fmt.Errorf("read RIFF header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, errors.New("not a RIFF/WAVE file")
	}

	var (
		byteRate uint32
		dataSize uint32
	)
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(f, chunk[:]); err != nil {
			break
		}
		chunkID := string(chunk[0:4])
		chunkSize := binary.LittleEndian.Uint32(chunk[4:8])

		switch chunkID {
		case "fmt ":
			var fmtChunk [16]byte
			if _, err := io.ReadFull(f, fmtChunk[:]); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			byteRate = binary.LittleEndian.Uint32(fmtChunk[8:12])
			if chunkSize > 16 {
				if _, err := f.Seek(int64(chunkSize-16), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		case "data":
			dataSize = chunkSize
			if byteRate == 0 {
				// fmt chunk not seen yet; skip the payload and keep scanning
				if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
					return 0, err
				}
			}
		default:
			if _, err := f.Seek(int64(chunkSize), io.SeekCurrent); err != nil {
				return 0, err
			}
		}

		if byteRate > 0 && dataSize > 0 {
			break
		}
		// chunks are word-aligned
		if chunkSize%2 == 1 {
			if _, err := f.Seek(1, io.SeekCurrent); err != nil {
				break
			}
		}
	}

	if byteRate == 0 || dataSize == 0 {
		return 0, errors.New("missing fmt or data chunk")
	}
	return float64(dataSize) / float64(byteRate), nil
}
