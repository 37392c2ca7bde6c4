package diagnostics

import "time"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

// Codes published on the diagnostics stream.
const (
	PixelBusy     = "PIXEL.BUSY"
	ClearBusy     = "CLEAR.BUSY"
	RefreshFailed = "REFRESH.FAILED"
	FrameFailed   = "ANIMATION.FRAME_FAILED"
)

type Diagnostic struct {
	Time           time.Time      `json:"time"`
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// Busy describes a command that gave up waiting for the display.
func Busy(code string, timeout time.Duration, evidence map[string]any) Diagnostic {
	return Diagnostic{
		Time:         time.Now(),
		Severity:     Warn,
		Code:         code,
		Summary:      "LED busy",
		Detail:       "display gate not acquired within " + timeout.String(),
		LikelyCauses: []string{"animation frame or another command held the display"},
		Evidence:     evidence,
	}
}

// Transfer describes a refresh the hardware did not accept.
func Transfer(code string, err error, evidence map[string]any) Diagnostic {
	return Diagnostic{
		Time:     time.Now(),
		Severity: Err,
		Code:     code,
		Summary:  "LED refresh failed",
		Detail:   err.Error(),
		LikelyCauses: []string{
			"SPI device unavailable or unplugged",
			"strip power lost",
		},
		SuggestedFixes: []string{"check wiring", "restart the service"},
		Evidence:       evidence,
	}
}
