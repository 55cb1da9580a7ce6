package validator

import (
	"errors"
	"testing"

	"go_library/internal/httpx"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feeForm struct {
	Type   string `validate:"required,fee_type"`
	Status string `validate:"omitempty,fee_status"`
	Role   string `validate:"omitempty,role"`
	State  string `validate:"omitempty,borrow_status"`
	Amount int64  `validate:"min=1"`
}

func TestRegister(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tests := []struct {
		name string
		form feeForm
		ok   bool
	}{
		{"valid", feeForm{Type: "late_fee", Status: "paid", Role: "staff", State: "borrowed", Amount: 1}, true},
		{"unknown fee type", feeForm{Type: "parking", Amount: 1}, false},
		{"unknown status", feeForm{Type: "other", Status: "refunded", Amount: 1}, false},
		{"unknown role", feeForm{Type: "other", Role: "owner", Amount: 1}, false},
		{"overdue is not stored", feeForm{Type: "other", State: "overdue", Amount: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.form)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	err := v.Struct(feeForm{Type: "parking"})
	require.Error(t, err)
	assert.Equal(t, "Type: fee_type; Amount: min=1", Message(err))

	assert.Equal(t, "EOF", Message(errors.New("EOF")))
}

func TestBindError(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	tests := []struct {
		name   string
		err    error
		code   int
		fields map[string]string
	}{
		{"only missing", v.Struct(feeForm{Amount: 1}), httpx.CodeParamMissing, map[string]string{"Type": "required"}},
		{"bad value", v.Struct(feeForm{Type: "parking"}), httpx.CodeParamInvalid, map[string]string{"Type": "fee_type", "Amount": "min"}},
		{"not a validation error", errors.New("invalid character 'x'"), httpx.CodeParamInvalid, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			got := BindError(tt.err)
			assert.Equal(t, 400, got.HTTPStatus)
			assert.Equal(t, tt.code, got.Code)
			if tt.fields == nil {
				assert.Nil(t, got.Data)
				assert.Equal(t, tt.err.Error(), got.Message)
			} else {
				assert.Equal(t, tt.fields, got.Data)
			}
		})
	}
}
