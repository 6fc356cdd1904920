package ops

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/triage/internal/errors"
)

// Record kinds accepted in an import file.
const (
	KindSession = "session"
	KindItem    = "item"
)

// maxImportLine bounds a single JSONL line.
const maxImportLine = 4 << 20

// ImportFileInput contains parameters for the ImportFile operation.
type ImportFileInput struct {
	Path string // required, .jsonl
}

// ImportFileOutput contains the result of the ImportFile operation.
type ImportFileOutput struct {
	Sessions int           `json:"sessions"`
	Items    int           `json:"items"`
	Errors   []ImportError `json:"errors"`
}

// ImportError represents an error that occurred during import.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importLine is one JSONL record: a kind tag plus the session or item fields.
type importLine struct {
	Kind string `json:"kind"`
}

// ImportFile loads sessions and items from a JSONL file. Each line carries a
// "kind" of session or item. Any parse error aborts the import before
// anything is written; sessions are written before items so item rows can
// reference them.
func ImportFile(ctx context.Context, database *sql.DB, input ImportFileInput) (*ImportFileOutput, error) {
	path, err := ValidateImportPath(input.Path)
	if err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sessions, items, parseErrors := parseImportFile(file)
	if len(parseErrors) > 0 {
		return &ImportFileOutput{Errors: parseErrors}, nil
	}

	out := &ImportFileOutput{Errors: []ImportError{}}
	if len(sessions) > 0 {
		res, err := IngestSessions(ctx, database, IngestSessionsInput{Sessions: sessions})
		if err != nil {
			return nil, err
		}
		out.Sessions = res.Inserted
	}
	if len(items) > 0 {
		res, err := IngestItems(ctx, database, IngestItemsInput{Items: items})
		if err != nil {
			return nil, err
		}
		out.Items = res.Inserted
	}
	return out, nil
}

// parseImportFile splits a JSONL stream into session and item records.
func parseImportFile(r io.Reader) ([]SessionRecord, []ItemRecord, []ImportError) {
	var (
		sessions    []SessionRecord
		items       []ItemRecord
		parseErrors []ImportError
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var head importLine
		if err := json.Unmarshal(line, &head); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}

		switch head.Kind {
		case KindSession:
			var rec SessionRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: err.Error()})
				continue
			}
			sessions = append(sessions, rec)
		case KindItem:
			var rec ItemRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				parseErrors = append(parseErrors, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: err.Error()})
				continue
			}
			items = append(items, rec)
		default:
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    string(errors.ErrInvalidRequest),
				Message: fmt.Sprintf("unknown kind %q", head.Kind),
			})
		}
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}

	return sessions, items, parseErrors
}
