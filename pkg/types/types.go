package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
)

type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var (
	SeverityNames = []string{
		"UNKNOWN",
		"LOW",
		"MEDIUM",
		"HIGH",
		"CRITICAL",
	}
	SeverityColor = []func(a ...interface{}) string{
		color.New(color.FgCyan).SprintFunc(),
		color.New(color.FgBlue).SprintFunc(),
		color.New(color.FgYellow).SprintFunc(),
		color.New(color.FgHiRed).SprintFunc(),
		color.New(color.FgRed).SprintFunc(),
	}
)

func NewSeverity(severity string) (Severity, error) {
	for i, name := range SeverityNames {
		if strings.EqualFold(severity, name) {
			return Severity(i), nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity: %s", severity)
}

func ColorizeSeverity(severity string) string {
	for i, name := range SeverityNames {
		if severity == name {
			return SeverityColor[i](severity)
		}
	}
	return color.New(color.FgBlue).SprintFunc()(severity)
}

func (s Severity) String() string {
	return SeverityNames[s]
}

// CveSummary is the condensed view of a CVE record written into scan reports.
type CveSummary struct {
	ID             string   `json:"id"`
	Description    string   `json:"description"`
	URLs           []string `json:"urls"`
	Severity       string   `json:"severity,omitempty"`
	Score          float64  `json:"score,omitempty"`
	KnownExploited bool     `json:"known_exploited,omitempty"`
	Tickets        []string `json:"tickets,omitempty"`
}

func (s CveSummary) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// TrackerSummary is an open issue on a distribution's vulnerability tracker.
type TrackerSummary struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

func (s TrackerSummary) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
