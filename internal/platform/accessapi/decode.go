package accessapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "access-tool/internal/common/errors"
)

// errorBody is the backend error envelope: detail is either a string or a list of
// field validation errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type detailItem struct {
	Type string        `json:"type"`
	Msg  string        `json:"msg"`
	Loc  []interface{} `json:"loc"`
}

// Location prefixes that say where the field came from, not which field it is.
var locationKinds = map[string]bool{
	"body":   true,
	"query":  true,
	"path":   true,
	"header": true,
	"cookie": true,
}

func decodeError(status int, data []byte) *apperrors.AppError {
	var body errorBody
	if len(bytes.TrimSpace(data)) == 0 || json.Unmarshal(data, &body) != nil || len(body.Detail) == 0 {
		return apperrors.FromStatus(status, "")
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return apperrors.FromStatus(status, text)
	}

	var items []detailItem
	if err := json.Unmarshal(body.Detail, &items); err != nil {
		return apperrors.FromStatus(status, "").WithDetail("detail", string(body.Detail))
	}

	parts := make([]string, 0, len(items))
	fields := make([]string, 0, len(items))
	for _, item := range items {
		field := fieldName(item.Loc)
		if field == "" {
			parts = append(parts, item.Msg)
			continue
		}
		fields = append(fields, field)
		parts = append(parts, fmt.Sprintf("%s: %s", field, item.Msg))
	}

	appErr := apperrors.FromStatus(status, strings.Join(parts, "; "))
	if len(fields) > 0 {
		appErr.WithDetail("fields", fields)
	}
	return appErr
}

// fieldName turns a loc path like ["body", "address"] into "address".
func fieldName(loc []interface{}) string {
	segments := make([]string, 0, len(loc))
	for i, l := range loc {
		switch v := l.(type) {
		case string:
			if i == 0 && locationKinds[v] {
				continue
			}
			segments = append(segments, v)
		case float64:
			segments = append(segments, fmt.Sprintf("%d", int(v)))
		}
	}
	return strings.Join(segments, ".")
}
