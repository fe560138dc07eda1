package models

import (
	"bytes"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// RenderType selects how the UI layer displays a record field
type RenderType string

const (
	RenderText     RenderType = "text"
	RenderImage    RenderType = "image"
	RenderCode     RenderType = "code"
	RenderPDF      RenderType = "pdf"
	RenderMarkdown RenderType = "markdown"
)

// FieldConfig is the render variant of one displayed field. Language only applies to code.
type FieldConfig struct {
	Type     RenderType `json:"type"`
	Language string     `json:"language,omitempty"`
}

// IsFile reports whether the field value is a path to a file on disk
func (f FieldConfig) IsFile() bool {
	return f.Type == RenderImage || f.Type == RenderPDF
}

// FormType is the kind of annotation a task asks for
type FormType string

const (
	FormSingleChoice   FormType = "single_choice"
	FormMultipleChoice FormType = "multiple_choice"
	FormRating         FormType = "rating"
	FormTextInput      FormType = "text_input"
)

// AnnotationForm describes the annotation a worker produces for each record
type AnnotationForm struct {
	Type        FormType `json:"type"`
	Options     []string `json:"options,omitempty"`
	MinValue    int      `json:"min_value,omitempty"`
	MaxValue    int      `json:"max_value,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Instruction string   `json:"instruction,omitempty"`
}

// Validate checks the form definition itself
func (f AnnotationForm) Validate() error {
	switch f.Type {
	case FormSingleChoice, FormMultipleChoice:
		if len(f.Options) == 0 {
			return errors.Wrapf(ErrInvalidTaskConfig, "%s form needs at least one option", f.Type)
		}
		seen := make(map[string]struct{}, len(f.Options))
		for _, o := range f.Options {
			if strings.TrimSpace(o) == "" {
				return errors.Wrap(ErrInvalidTaskConfig, "empty option")
			}
			if _, dup := seen[o]; dup {
				return errors.Wrapf(ErrInvalidTaskConfig, "duplicate option %q", o)
			}
			seen[o] = struct{}{}
		}
	case FormRating:
		if f.MinValue >= f.MaxValue {
			return errors.Wrapf(ErrInvalidTaskConfig, "rating range %d-%d is empty", f.MinValue, f.MaxValue)
		}
	case FormTextInput:
	default:
		return errors.Wrapf(ErrInvalidTaskConfig, "unknown annotation type %q", f.Type)
	}
	return nil
}

// CheckResult verifies that an encoded result fits the form
func (f AnnotationForm) CheckResult(result json.RawMessage) error {
	if len(result) == 0 || !json.Valid(result) {
		return errors.Wrap(ErrInvalidResult, "result is not valid JSON")
	}
	if bytes.Equal(bytes.TrimSpace(result), []byte("null")) {
		return errors.Wrap(ErrInvalidResult, "result is null")
	}

	switch f.Type {
	case FormSingleChoice:
		var choice string
		if err := codec.Unmarshal(result, &choice); err != nil {
			return errors.Wrap(ErrInvalidResult, "single choice result must be a string")
		}
		if !slices.Contains(f.Options, choice) {
			return errors.Wrapf(ErrInvalidResult, "%q is not an option", choice)
		}
	case FormMultipleChoice:
		var choices []string
		if err := codec.Unmarshal(result, &choices); err != nil {
			return errors.Wrap(ErrInvalidResult, "multiple choice result must be a list of strings")
		}
		for _, c := range choices {
			if !slices.Contains(f.Options, c) {
				return errors.Wrapf(ErrInvalidResult, "%q is not an option", c)
			}
		}
	case FormRating:
		var score float64
		if err := codec.Unmarshal(result, &score); err != nil {
			return errors.Wrap(ErrInvalidResult, "rating result must be a number")
		}
		if score != math.Trunc(score) || score < float64(f.MinValue) || score > float64(f.MaxValue) {
			return errors.Wrapf(ErrInvalidResult, "rating %v outside %d-%d", score, f.MinValue, f.MaxValue)
		}
	case FormTextInput:
		var text string
		if err := codec.Unmarshal(result, &text); err != nil {
			return errors.Wrap(ErrInvalidResult, "text result must be a string")
		}
	}
	return nil
}

// ParseInput turns a line typed by a worker into an encoded result.
// Choices may be given by option text or by 1-based option number; multiple
// choices are comma separated.
func (f AnnotationForm) ParseInput(input string) (json.RawMessage, error) {
	input = strings.TrimSpace(input)

	var value any
	switch f.Type {
	case FormSingleChoice:
		opt, err := f.option(input)
		if err != nil {
			return nil, err
		}
		value = opt
	case FormMultipleChoice:
		picked := []string{}
		if input != "" {
			for _, part := range strings.Split(input, ",") {
				opt, err := f.option(strings.TrimSpace(part))
				if err != nil {
					return nil, err
				}
				if !slices.Contains(picked, opt) {
					picked = append(picked, opt)
				}
			}
		}
		value = picked
	case FormRating:
		n, err := strconv.Atoi(input)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidResult, "%q is not a whole number", input)
		}
		value = n
	default:
		value = input
	}

	raw, err := codec.Marshal(value)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := f.CheckResult(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (f AnnotationForm) option(input string) (string, error) {
	if slices.Contains(f.Options, input) {
		return input, nil
	}
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(f.Options) {
		return f.Options[n-1], nil
	}
	return "", errors.Wrapf(ErrInvalidResult, "%q is not an option", input)
}

// FormatResult renders a stored result for display
func FormatResult(result json.RawMessage) string {
	if len(result) == 0 {
		return ""
	}
	var text string
	if err := codec.Unmarshal(result, &text); err == nil {
		return text
	}
	var list []string
	if err := codec.Unmarshal(result, &list); err == nil {
		return strings.Join(list, ", ")
	}
	return string(result)
}

// Validate checks the task configuration blob
func (c TaskConfig) Validate() error {
	for _, field := range c.SelectedFields {
		fc, ok := c.FieldConfigs[field]
		if !ok {
			return errors.Wrapf(ErrInvalidTaskConfig, "selected field %q has no render config", field)
		}
		switch fc.Type {
		case RenderText, RenderImage, RenderCode, RenderPDF, RenderMarkdown:
		default:
			return errors.Wrapf(ErrInvalidTaskConfig, "field %q has unknown render type %q", field, fc.Type)
		}
	}
	return c.AnnotationConfig.Validate()
}
