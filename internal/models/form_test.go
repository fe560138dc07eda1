package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotationFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    AnnotationForm
		wantErr bool
	}{
		{"single choice", AnnotationForm{Type: FormSingleChoice, Options: []string{"yes", "no"}}, false},
		{"choice without options", AnnotationForm{Type: FormMultipleChoice}, true},
		{"duplicate options", AnnotationForm{Type: FormSingleChoice, Options: []string{"a", "a"}}, true},
		{"rating", AnnotationForm{Type: FormRating, MinValue: 1, MaxValue: 10}, false},
		{"empty rating range", AnnotationForm{Type: FormRating, MinValue: 5, MaxValue: 5}, true},
		{"text", AnnotationForm{Type: FormTextInput}, false},
		{"unknown type", AnnotationForm{Type: "slider"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTaskConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCheckResult(t *testing.T) {
	choice := AnnotationForm{Type: FormSingleChoice, Options: []string{"cat", "dog"}}
	multi := AnnotationForm{Type: FormMultipleChoice, Options: []string{"red", "green"}}
	rating := AnnotationForm{Type: FormRating, MinValue: 1, MaxValue: 5}
	text := AnnotationForm{Type: FormTextInput}

	require.NoError(t, choice.CheckResult(json.RawMessage(`"cat"`)))
	require.ErrorIs(t, choice.CheckResult(json.RawMessage(`"bird"`)), ErrInvalidResult)
	require.ErrorIs(t, choice.CheckResult(json.RawMessage(`3`)), ErrInvalidResult)

	require.NoError(t, multi.CheckResult(json.RawMessage(`["red","green"]`)))
	require.NoError(t, multi.CheckResult(json.RawMessage(`[]`)))
	require.ErrorIs(t, multi.CheckResult(json.RawMessage(`["blue"]`)), ErrInvalidResult)

	require.NoError(t, rating.CheckResult(json.RawMessage(`5`)))
	require.NoError(t, rating.CheckResult(json.RawMessage(`1`)))
	require.NoError(t, AnnotationForm{Type: FormRating, MinValue: 1, MaxValue: 10}.CheckResult(json.RawMessage(`10`)))
	require.ErrorIs(t, rating.CheckResult(json.RawMessage(`6`)), ErrInvalidResult)
	require.ErrorIs(t, rating.CheckResult(json.RawMessage(`2.5`)), ErrInvalidResult)

	// empty text is still a saved result
	require.NoError(t, text.CheckResult(json.RawMessage(`""`)))
	require.ErrorIs(t, text.CheckResult(json.RawMessage(`not json`)), ErrInvalidResult)
	require.ErrorIs(t, text.CheckResult(nil), ErrInvalidResult)
}

func TestCheckResultRejectsNull(t *testing.T) {
	forms := []AnnotationForm{
		{Type: FormSingleChoice, Options: []string{"cat"}},
		{Type: FormMultipleChoice, Options: []string{"red"}},
		{Type: FormRating, MinValue: 1, MaxValue: 5},
		{Type: FormTextInput},
	}
	for _, f := range forms {
		t.Run(string(f.Type), func(t *testing.T) {
			require.ErrorIs(t, f.CheckResult(json.RawMessage(`null`)), ErrInvalidResult)
			require.ErrorIs(t, f.CheckResult(json.RawMessage(` null `)), ErrInvalidResult)
		})
	}
}

func TestParseInput(t *testing.T) {
	choice := AnnotationForm{Type: FormSingleChoice, Options: []string{"cat", "dog"}}

	raw, err := choice.ParseInput("2")
	require.NoError(t, err)
	assert.JSONEq(t, `"dog"`, string(raw))

	raw, err = choice.ParseInput(" cat ")
	require.NoError(t, err)
	assert.JSONEq(t, `"cat"`, string(raw))

	_, err = choice.ParseInput("3")
	require.True(t, errors.Is(err, ErrInvalidResult))

	multi := AnnotationForm{Type: FormMultipleChoice, Options: []string{"red", "green", "blue"}}
	raw, err = multi.ParseInput("blue, 1, blue")
	require.NoError(t, err)
	assert.JSONEq(t, `["blue","red"]`, string(raw))

	rating := AnnotationForm{Type: FormRating, MinValue: 1, MaxValue: 10}
	raw, err = rating.ParseInput("7")
	require.NoError(t, err)
	assert.JSONEq(t, `7`, string(raw))
	_, err = rating.ParseInput("seven")
	require.ErrorIs(t, err, ErrInvalidResult)

	text := AnnotationForm{Type: FormTextInput}
	raw, err = text.ParseInput("looks fine")
	require.NoError(t, err)
	assert.JSONEq(t, `"looks fine"`, string(raw))
}

func TestTaskConfigValidate(t *testing.T) {
	cfg := TaskConfig{
		SelectedFields:   []string{"question", "image"},
		FieldConfigs:     map[string]FieldConfig{"question": {Type: RenderText}, "image": {Type: RenderImage}},
		AnnotationConfig: AnnotationForm{Type: FormTextInput},
	}
	require.NoError(t, cfg.Validate())

	cfg.SelectedFields = append(cfg.SelectedFields, "answer")
	require.ErrorIs(t, cfg.Validate(), ErrInvalidTaskConfig)
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "yes", FormatResult(json.RawMessage(`"yes"`)))
	assert.Equal(t, "a, b", FormatResult(json.RawMessage(`["a","b"]`)))
	assert.Equal(t, "4", FormatResult(json.RawMessage(`4`)))
	assert.Equal(t, "", FormatResult(nil))
}
