package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedFormat    = errors.New("unsupported format")
	ErrUnsupportedDirection = errors.New("unsupported conversion direction")
)

// Format names one of the three configuration representations.
type Format string

const (
	FormatLocal       Format = "local"
	FormatPipeline    Format = "pipeline"
	FormatFunctionApp Format = "functionapp"
)

var formatAliases = map[string]Format{
	"local":             FormatLocal,
	"local-settings":    FormatLocal,
	"localsettings":     FormatLocal,
	"pipeline":          FormatPipeline,
	"release-pipeline":  FormatPipeline,
	"devops":            FormatPipeline,
	"azure":             FormatFunctionApp,
	"functionapp":       FormatFunctionApp,
	"function-app":      FormatFunctionApp,
	"azure-functionapp": FormatFunctionApp,
}

// ParseFormat maps a configuration tag onto a Format, ignoring case.
func ParseFormat(s string) (Format, error) {
	f, ok := formatAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
	return f, nil
}

// Direction is one supported conversion.
type Direction int

const (
	LocalToPipeline Direction = iota + 1
	PipelineToAzure
	AzureToLocal
)

// Forward lists the directions run for an untagged environment mapping.
var Forward = []Direction{LocalToPipeline, PipelineToAzure}

type directionInfo struct {
	name     string
	from, to Format
	ext      string
}

var directions = map[Direction]directionInfo{
	LocalToPipeline: {name: "local-to-pipeline", from: FormatLocal, to: FormatPipeline, ext: ".txt"},
	PipelineToAzure: {name: "pipeline-to-azure", from: FormatPipeline, to: FormatFunctionApp, ext: ".json"},
	AzureToLocal:    {name: "azure-to-local", from: FormatFunctionApp, to: FormatLocal, ext: ".json"},
}

// ParseDirection resolves a pair of format tags into a Direction.
func ParseDirection(from, to string) (Direction, error) {
	f, err := ParseFormat(from)
	if err != nil {
		return 0, fmt.Errorf("convertFrom: %w", err)
	}
	t, err := ParseFormat(to)
	if err != nil {
		return 0, fmt.Errorf("convertTo: %w", err)
	}
	for d, info := range directions {
		if info.from == f && info.to == t {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %s to %s", ErrUnsupportedDirection, f, t)
}

func (d Direction) String() string {
	if info, ok := directions[d]; ok {
		return info.name
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// From returns the input format.
func (d Direction) From() Format { return directions[d].from }

// To returns the output format.
func (d Direction) To() Format { return directions[d].to }

// Extension returns the output file extension, including the dot.
func (d Direction) Extension() string { return directions[d].ext }

// FileName returns the output file name for a logical input name.
func (d Direction) FileName(environment, name string) string {
	switch d {
	case LocalToPipeline:
		return fmt.Sprintf("%s_%s%s", environment, name, d.Extension())
	case PipelineToAzure:
		return fmt.Sprintf("%s-%s%s", environment, name, d.Extension())
	default:
		return name + d.Extension()
	}
}

// UsesEnvironment reports whether conversions in this direction are
// resolved per environment.
func (d Direction) UsesEnvironment() bool {
	return d != AzureToLocal
}
