package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexInt is an int that accepts string-encoded and float-encoded JSON
// values. The spreadsheet importer that feeds the outcome collections is
// not consistent about numeric types ("12", 12.0 and 12 all occur), so
// outcome numbers decode through this instead of a plain int.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	// Quoted value: unquote then parse
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("flex int: %w", err)
		}
		if s == "" {
			*f = 0
			return nil
		}
		if i, err := strconv.Atoi(s); err == nil {
			*f = FlexInt(i)
			return nil
		}
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			*f = FlexInt(int(v))
			return nil
		}
		return fmt.Errorf("flex int: cannot parse %q", s)
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("flex int: %w", err)
	}
	*f = FlexInt(int(v))
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(f))
}
