// Package whitelist reads uploaded user id lists for whitelist conditions.
package whitelist

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	js "github.com/santhosh-tekuri/jsonschema/v5"

	apperrors "access-tool/internal/common/errors"
	condition "access-tool/internal/features/condition/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	ErrEmpty             = errors.New("user list is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Массив id или объект {"users": [...]}
const uploadSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"ids": {"type": "array", "items": {"type": "integer", "minimum": 1}}
	},
	"oneOf": [
		{"$ref": "#/definitions/ids"},
		{
			"type": "object",
			"required": ["users"],
			"properties": {"users": {"$ref": "#/definitions/ids"}}
		}
	]
}`

var schema = js.MustCompileString("mem://whitelist/upload.json", uploadSchema)

// DetectFormat picks the parser by file extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
}

// ParseFile reads the list in the format implied by name.
func ParseFile(name string, r io.Reader) ([]int64, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	return Parse(format, r)
}

// Parse returns the user ids in file order without duplicates.
func Parse(format Format, r io.Reader) ([]int64, error) {
	var (
		ids []int64
		err error
	)
	switch format {
	case FormatCSV:
		ids, err = ParseCSV(r)
	case FormatJSON:
		data, readErr := io.ReadAll(r)
		if readErr != nil {
			return nil, readErr
		}
		ids, err = ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrEmpty
	}
	return ids, nil
}

// ParseCSV takes the first column of every row. A non-numeric first row is treated as
// a header.
func ParseCSV(r io.Reader) ([]int64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var ids []int64
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeClientValidation, "Failed to read CSV file")
		}
		line++

		cell := strings.TrimSpace(strings.TrimPrefix(record[0], "\ufeff"))
		if cell == "" {
			continue
		}
		id, err := strconv.ParseInt(cell, 10, 64)
		if err != nil || id <= 0 {
			if line == 1 {
				continue
			}
			return nil, apperrors.NewClientValidationError("users", fmt.Sprintf("line %d: %q is not a user id", line, cell))
		}
		ids = append(ids, id)
	}
	return dedupe(ids), nil
}

// ParseJSON accepts an array of ids or an object with a users array.
func ParseJSON(data []byte) ([]int64, error) {
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeClientValidation, "File is not valid JSON")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, apperrors.NewClientValidationError("users", "expected an array of user ids or {\"users\": [...]}").
			WithContext("schema", err.Error())
	}

	var (
		ids []int64
		err error
	)
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		err = json.Unmarshal(data, &ids)
	} else {
		var obj struct {
			Users []int64 `json:"users"`
		}
		err = json.Unmarshal(data, &obj)
		ids = obj.Users
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeClientValidation, "Failed to read user ids")
	}
	return dedupe(ids), nil
}

// Patch builds the editor patch that sets the whitelist users.
func Patch(ids []int64) condition.Patch {
	return condition.Patch{"users": append([]int64{}, ids...)}
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
