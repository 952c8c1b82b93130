package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/ecoswap-api/internal/apperrors"
)

type sample struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Kind     string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "a@b.io", Password: "secret"}))

	tests := []struct {
		name string
		in   sample
		want string
	}{
		{"missing email", sample{Password: "secret"}, "email: обязательное поле"},
		{"bad email", sample{Email: "nope", Password: "secret"}, "email: некорректный email"},
		{"short password", sample{Email: "a@b.io", Password: "12345"}, "password: минимальная длина 6"},
		{"bad kind", sample{Email: "a@b.io", Password: "secret", Kind: "c"}, "kind: допустимые значения: a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			appErr, ok := apperrors.As(err)
			if assert.True(t, ok) {
				assert.Equal(t, apperrors.CodeValidation, appErr.Code)
				assert.Equal(t, tt.want, appErr.Message)
			}
		})
	}
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("email", "a@b.io", "email"))
	assert.True(t, apperrors.Is(Var("email", "x", "email"), apperrors.CodeValidation))
}
