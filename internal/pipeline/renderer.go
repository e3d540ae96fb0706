package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/latool/internal/model"
	"github.com/ppiankov/latool/internal/parse"
)

var (
	headingColor = color.New(color.Bold)
	fieldColor   = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
)

const rule = "================================================================================"

// Renderer prints analysis output
type Renderer struct {
	w       io.Writer
	showLog bool
}

// NewRenderer creates a renderer writing to w. showLog prints the log
// messages instead of their count.
func NewRenderer(w io.Writer, showLog bool) *Renderer {
	return &Renderer{w: w, showLog: showLog}
}

// RenderSummary prints the extracted fields one per line
func (r *Renderer) RenderSummary(result *model.Result) {
	if !result.Success {
		if result.Cancelled {
			warnColor.Fprintf(r.w, "%s\n", result.Error)
			return
		}
		errorColor.Fprintf(r.w, "ERROR: %s\n", result.Error)
		return
	}

	headingColor.Fprintln(r.w, rule)
	headingColor.Fprintln(r.w, "LINKED ART ANALYSIS")
	headingColor.Fprintln(r.w, rule)
	fmt.Fprintln(r.w)

	for _, field := range result.Results.Fields() {
		values, _ := result.Results.Get(field)
		fieldColor.Fprintf(r.w, "%s:", field)
		switch {
		case len(values) == 1 && values[0] == model.NotFound:
			warnColor.Fprintf(r.w, " %s\n", model.NotFound)
		case len(values) == 1 && !strings.Contains(values[0], "\n"):
			fmt.Fprintf(r.w, " %s\n", values[0])
		default:
			fmt.Fprintln(r.w)
			for _, v := range values {
				for _, line := range strings.Split(v, "\n") {
					fmt.Fprintf(r.w, "  - %s\n", line)
				}
			}
		}
	}

	if len(result.Links) > 0 {
		r.renderLinks(result.Links)
	}
	if result.Description != nil {
		r.renderDescription(result.Description)
	}
	r.RenderLog(result.LogMessages)
}

func (r *Renderer) renderLinks(links []model.LinkStatus) {
	fmt.Fprintln(r.w)
	headingColor.Fprintln(r.w, "LINKS")
	headingColor.Fprintln(r.w, "-----")
	for _, l := range links {
		switch {
		case l.Accessible:
			okColor.Fprintf(r.w, "  ✓ %s", l.URL)
		case l.Error != "":
			errorColor.Fprintf(r.w, "  ✗ %s (%s)", l.URL, l.Error)
		default:
			errorColor.Fprintf(r.w, "  ✗ %s (HTTP %d)", l.URL, l.StatusCode)
		}
		if l.RedirectURL != "" {
			fmt.Fprintf(r.w, " -> %s", l.RedirectURL)
		}
		fmt.Fprintln(r.w)
	}
}

func (r *Renderer) renderDescription(desc *model.Description) {
	fmt.Fprintln(r.w)
	headingColor.Fprintln(r.w, "DESCRIPTION (generated)")
	headingColor.Fprintln(r.w, "-----------------------")
	if desc.Text != "" {
		fmt.Fprintln(r.w, desc.Text)
		fmt.Fprintf(r.w, "(%s/%s, strict citations: %v)\n", desc.Provider, desc.Model, desc.StrictCitations)
	}
	for _, note := range desc.Warnings {
		warnColor.Fprintf(r.w, "  note: %s\n", note)
	}
}

// RenderLog prints the log messages, or only their count with a hint
func (r *Renderer) RenderLog(messages []string) {
	if len(messages) == 0 {
		return
	}
	fmt.Fprintln(r.w)
	if !r.showLog {
		warnColor.Fprintf(r.w, "%d issue(s) logged. Use --log to view details.\n", len(messages))
		return
	}
	headingColor.Fprintln(r.w, "LOG MESSAGES")
	headingColor.Fprintln(r.w, "------------")
	for _, msg := range messages {
		fmt.Fprintf(r.w, "  - %s\n", msg)
	}
}

// RenderTree prints the statistics and the full structure of a parsed entity
func (r *Renderer) RenderTree(node *model.Node, messages []string) {
	stats := parse.ComputeStats(node)
	if stats == nil {
		fmt.Fprintln(r.w, parse.Format(node))
		r.RenderLog(messages)
		return
	}

	headingColor.Fprintln(r.w, rule)
	headingColor.Fprintln(r.w, "COMPLETE LINKED ART ENTITY ANALYSIS")
	headingColor.Fprintln(r.w, rule)
	fmt.Fprintln(r.w)

	headingColor.Fprintln(r.w, "SUMMARY")
	headingColor.Fprintln(r.w, "-------")
	fmt.Fprintf(r.w, "Entity Type: %s\n", stats.Type)
	fmt.Fprintf(r.w, "Label: %s\n", orDefault(stats.Label, "(unnamed)"))
	fmt.Fprintf(r.w, "ID: %s\n", orDefault(stats.ID, "(none)"))
	fmt.Fprintf(r.w, "Properties: %d\n", stats.PropertyCount)
	fmt.Fprintf(r.w, "Nested Entities: %d\n", stats.NestedEntityCount)
	fmt.Fprintf(r.w, "Has External References: %s\n", yesNo(stats.HasReferences))
	fmt.Fprintln(r.w)

	headingColor.Fprintln(r.w, "PROPERTIES")
	headingColor.Fprintln(r.w, "----------")
	for _, name := range stats.PropertyNames {
		fmt.Fprintf(r.w, "  - %s\n", name)
	}
	fmt.Fprintln(r.w)

	headingColor.Fprintln(r.w, "COMPLETE STRUCTURE")
	headingColor.Fprintln(r.w, "------------------")
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, parse.Format(node))

	r.RenderLog(messages)
}

// WriteResult saves result to path as YAML (.yaml, .yml) or JSON
func WriteResult(path string, result *model.Result) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(result)
	default:
		data, err = json.MarshalIndent(result, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
