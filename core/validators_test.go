package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Username string `form:"username" validate:"required,alphanum_"`
	Subject  string `json:"subject" validate:"notblank"`
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := NewTranslator()
	InitValidators(validate, translator)

	tests := []struct {
		name string
		data sample
		want map[string]string
	}{
		{name: "valid", data: sample{Username: "jean_dupont", Subject: "Maths"}},
		{
			name: "missing username",
			data: sample{Subject: "Maths"},
			want: map[string]string{"username": "this field is required"},
		},
		{
			name: "bad chars and blank subject",
			data: sample{Username: "jean dupont", Subject: "   "},
			want: map[string]string{
				"username": alphaNumUnderText,
				"subject":  notBlankText,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.want, TranslateErrors(vErrs, translator))
		})
	}
}

func TestPage(t *testing.T) {
	p := NewPage(0, 0)
	assert.Equal(t, Page{Number: 1, Size: DefaultPageSize}, p)

	p = NewPage(2, 3)
	p.Total = 7
	assert.Equal(t, 3, p.Offset())
	assert.Equal(t, 3, p.Pages())
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())
	start, end := p.Bounds()
	assert.Equal(t, 3, start)
	assert.Equal(t, 6, end)

	p = NewPage(5, 3)
	p.Total = 7
	start, end = p.Bounds()
	assert.Equal(t, 7, start)
	assert.Equal(t, 7, end)
	assert.False(t, p.HasNext())
}

func TestOrderBy(t *testing.T) {
	allowed := map[string]string{"username": "u.username", "id": "u.id"}
	got := OrderBy([]DBOrdering{{Field: "username", Ascending: true}, {Field: "nope"}, {Field: "id"}}, allowed, "u.id ASC")
	assert.Equal(t, "u.username ASC, u.id DESC", got)
	assert.Equal(t, "u.id ASC", OrderBy(nil, allowed, "u.id ASC"))
}

func TestValidationError(t *testing.T) {
	err := NewFieldError("code", assert.AnError)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, map[string]string{"code": assert.AnError.Error()}, vErr.FieldMap())
	assert.False(t, IsShutdown(err))
	assert.True(t, IsShutdown(NewShutdownError("bye")))
}
