package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"
)

var (
	posColor  = color.New(color.FgCyan)
	nameColor = color.New(color.FgYellow, color.Bold)
	skipColor = color.New(color.FgRed)
)

func writeResults(w io.Writer, result *Result, opts *Options) error {
	var output string
	var err error

	if opts.JSON {
		output, err = formatJSONOutput(result)
	} else {
		output = formatTextOutput(result, opts)
	}

	if err != nil {
		return err
	}

	_, err = io.WriteString(w, output)
	return err
}

func formatJSONOutput(result *Result) (string, error) {
	fields := make([]jField, 0, len(result.UnusedFields))
	for _, f := range result.UnusedFields {
		fields = append(fields, jField{
			Name:       f.Name,
			Class:      f.Class,
			Field:      f.Field,
			Static:     f.Static,
			Visibility: f.Visibility.String(),
			File:       f.Position.Filename,
			Line:       f.Position.Line,
			Column:     f.Position.Column,
			Message:    f.Message,
		})
	}

	data, err := json.MarshalIndent(jOutput{
		UnusedFields: fields,
		Skipped:      result.Skipped,
		Stats:        result.Stats,
		Version:      version,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data) + "\n", nil
}

func formatTextOutput(result *Result, opts *Options) string {
	var output strings.Builder

	if opts.Verbose {
		slog.Info("",
			"files", result.Stats.Files,
			"skipped_files", result.Stats.SkippedFiles,
			"classes", result.Stats.Classes,
			"total_fields", result.Stats.TotalFields,
			"unused_fields", result.Stats.UnusedFields,
			"managed_fields", result.Stats.ManagedFields,
			"dynamic_accesses", result.Stats.DynamicAccesses,
			"shadowed_names", result.Stats.ShadowedNames,
			"analysis_duration", result.Stats.AnalysisDuration.String())
	}

	for _, s := range result.Skipped {
		output.WriteString(skipColor.Sprintf("skipped %s", s.Reason))
		output.WriteString("\n")
	}

	if len(result.UnusedFields) == 0 {
		slog.Info("no unused fields found")
		return output.String()
	}

	for _, f := range result.UnusedFields {
		// Format: filename:line:column Class->field
		output.WriteString(posColor.Sprint(f.Position.String()))
		output.WriteString(" ")
		output.WriteString(nameColor.Sprint(f.Name))
		if opts.Verbose {
			output.WriteString(" (" + f.Message + ")")
		}
		output.WriteString("\n")
	}

	return output.String()
}

type jOutput struct {
	UnusedFields []jField `json:"unused_fields"`
	Skipped      any      `json:"skipped"`
	Stats        any      `json:"stats"`
	Version      string   `json:"version"`
	Timestamp    string   `json:"timestamp"`
}

type jField struct {
	Name       string `json:"name"`
	Class      string `json:"class"`
	Field      string `json:"field"`
	Static     bool   `json:"static"`
	Visibility string `json:"visibility"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Message    string `json:"message"`
}
