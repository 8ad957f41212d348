package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadRecords loads every intact record from a transcript file. A torn
// trailing line, as left by a crashed or still-writing producer, is skipped;
// a malformed line anywhere else is corruption and fails the read.
func ReadRecords(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer file.Close()

	return readRecords(file)
}

func readRecords(rd io.Reader) ([]Record, error) {
	var records []Record

	reader := bufio.NewReader(rd)
	for {
		line, err := reader.ReadBytes('\n')
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return nil, fmt.Errorf("read transcript: %w", err)
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			var rec Record
			if uerr := json.Unmarshal(trimmed, &rec); uerr != nil {
				if atEOF { // torn trailing line, keep what is committed
					return records, nil
				}
				return nil, fmt.Errorf("decode transcript line %d: %w", len(records)+1, uerr)
			}
			records = append(records, rec)
		}

		if atEOF {
			return records, nil
		}
	}
}
