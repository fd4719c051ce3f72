package crm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
)

// JSONActivityParser decodes a JSON array of activity objects. Fields other
// than the ones on Activity are ignored; anything that is not a well-formed
// array of objects is an error.
type JSONActivityParser struct{}

func (JSONActivityParser) Name() string { return "json" }

func (JSONActivityParser) Parse(raw string) ([]Activity, error) {
	return decodeActivities([]byte(raw))
}

func decodeActivities(data []byte) ([]Activity, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Activity{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	var activities []Activity
	if err := dec.Decode(&activities); err != nil {
		return nil, malformed(err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed(fmt.Errorf("trailing data after activities"))
	}

	for i := range activities {
		activities[i].Subject = strings.TrimSpace(activities[i].Subject)
		date, err := parseDate(activities[i].RawDate)
		if err != nil {
			return nil, malformed(err)
		}
		activities[i].Date = date
	}
	if activities == nil {
		activities = []Activity{}
	}
	return activities, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: activities: %v", apperrors.ErrMalformedInput, err)
}
