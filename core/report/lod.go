package report

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// LOD is the report level of detail.
type LOD int

const (
	// LODAllFull lists every record with its sheet and store rows.
	LODAllFull LOD = iota
	// LODAllMid lists every record without row data.
	LODAllMid
	// LODMismatch lists records that disagree with the store, with row data.
	LODMismatch
	// LODSummary holds totals only.
	LODSummary
)

var lodNames = []string{"ALL_FULL", "ALL_MID", "MISMATCH", "SUMMARY"}

func (l LOD) String() string {
	if l < 0 || int(l) >= len(lodNames) {
		return fmt.Sprintf("LOD(%d)", int(l))
	}
	return lodNames[l]
}

// ParseLOD accepts a level name, ignoring case, or its number.
func ParseLOD(s string) (LOD, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(lodNames) {
			return 0, fmt.Errorf("invalid level of detail %d, expected 0-%d", n, len(lodNames)-1)
		}
		return LOD(n), nil
	}
	for i, name := range lodNames {
		if strings.EqualFold(name, s) {
			return LOD(i), nil
		}
	}
	return 0, fmt.Errorf("invalid level of detail %q, expected one of %s", s, strings.Join(lodNames, ", "))
}

// MarshalJSON encodes the level by name.
func (l LOD) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a level name or number.
func (l *LOD) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseLOD(fmt.Sprint(raw))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
