package stage

import (
	"encoding/json"
	"strings"

	"skald/internal/services"
)

// DecodeOptions parses a job's options JSON into a stage-specific options
// struct. Empty input leaves dst at its zero value. On malformed input it
// returns a services.ErrValidation suitable for returning from Generate.
func DecodeOptions(raw string, dst any) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return services.Wrap(
			services.ErrValidation, "", "decode options",
			"job options are not valid JSON", err)
	}
	return nil
}
