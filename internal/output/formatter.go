package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/brightloop/provisor/internal/catalog"
	perrors "github.com/brightloop/provisor/internal/errors"
	"github.com/brightloop/provisor/internal/supervisor"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Format selects how a Formatter renders results.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatRaw      Format = "raw"
	FormatMarkdown Format = "markdown"
)

// Formatter renders provisor results for the CLI, in one of Format's modes.
type Formatter struct {
	format Format
	color  bool
}

// NewFormatter builds a Formatter. useColor is ignored in JSON mode.
func NewFormatter(format Format, useColor bool) *Formatter {
	return &Formatter{format: format, color: useColor}
}

// FormatResult renders a tool call's outcome.
func (f *Formatter) FormatResult(result *CallResult) string {
	switch f.format {
	case FormatJSON:
		s, _ := result.JSON()
		return s
	case FormatMarkdown:
		return result.Markdown()
	case FormatRaw:
		return result.Text()
	}
	if result.IsError {
		return color.RedString("Error: ") + result.Text()
	}
	return result.Text()
}

// FormatError renders a classified error.
func (f *Formatter) FormatError(ce perrors.ClassifiedError) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(ce, "", "  ")
		return string(data)
	}
	var msg string
	if f.color {
		msg = color.RedString("Error [%s]: %s", ce.Kind, ce.Message)
		if ce.Hint != "" {
			msg += "\n" + color.YellowString("Hint: %s", ce.Hint)
		}
	} else {
		msg = fmt.Sprintf("Error [%s]: %s", ce.Kind, ce.Message)
		if ce.Hint != "" {
			msg += "\nHint: " + ce.Hint
		}
	}
	return msg
}

// FormatTools renders a catalog listing as a table (or JSON in JSON mode).
func (f *Formatter) FormatTools(tools []catalog.ToolEntry) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(tools, "", "  ")
		fmt.Println(string(data))
		return ""
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Tool", "Provider", "Description"}),
	)
	for _, t := range tools {
		table.Append([]string{t.ToolName, t.ProviderName, t.Description})
	}
	table.Render()
	return ""
}

// FormatServers renders the supervisor's loaded-provider registry as a table
// (or JSON in JSON mode).
func (f *Formatter) FormatServers(infos []supervisor.LoadedInfo) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Println(string(data))
		return ""
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Name", "Alive", "Tools"}),
	)
	for _, info := range infos {
		alive := "yes"
		if !info.Alive {
			alive = "no"
		}
		table.Append([]string{info.Name, alive, strconv.Itoa(info.ToolCount)})
	}
	table.Render()
	return ""
}

// FormatAvailable renders the set of configured-but-not-necessarily-loaded
// provider names.
func (f *Formatter) FormatAvailable(names []string) string {
	if f.format == FormatJSON {
		data, _ := json.MarshalIndent(names, "", "  ")
		fmt.Println(string(data))
		return ""
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Name"}),
	)
	for _, n := range names {
		table.Append([]string{n})
	}
	table.Render()
	return ""
}
