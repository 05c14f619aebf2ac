package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/motivequery/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Newf
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"undefined symbol", errors.ErrCodeQueryUndefinedSymbol, "The symbol 'x' is not defined."},
		{"invalid param", errors.CodeInvalidParam, "query file must not be empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.Contains(t, ae.Stack, "errors_test.go")
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.ErrCodeQueryUnknownStruct, "There is no structure with id '%s' in the current ExecutionContext.", "1tqn")
	assert.Equal(t, "There is no structure with id '1tqn' in the current ExecutionContext.", ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.ErrCodeQueryRuntime, "empty union")
	assert.Equal(t, "[QRY_002] empty union", ae.Error())

	withDetail := ae.WithDetail("Union[Atoms[]]")
	assert.Equal(t, "[QRY_002] empty union: Union[Atoms[]]", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")
}

func TestWithDetail_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("y")))
}

// ─────────────────────────────────────────────────────────────────────────────
// Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "x"))
	assert.Nil(t, errors.Wrapf(nil, errors.CodeInternal, "x %d", 1))
}

func TestWrap_PreservesCodeWhenUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.NotConverging("Not converging.")
	outer := errors.Wrap(inner, errors.CodeUnknown, "plane fit failed")

	assert.Equal(t, errors.ErrCodeQueryNotConverging, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestWrap_StandardErrorCause(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("io: short read")
	ae := errors.Wrapf(cause, errors.ErrCodeStructureParse, "failed to read %s", "a.pdb")

	assert.Equal(t, "failed to read a.pdb", ae.Message)
	assert.Equal(t, cause, stderrors.Unwrap(ae))
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_WalksChain(t *testing.T) {
	t.Parallel()

	inner := errors.InvalidConfig("A ring must contain at least 3 elements.")
	mid := fmt.Errorf("building Ring: %w", inner)
	outer := errors.Wrap(mid, errors.ErrCodeQueryDecode, "decode failed")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeQueryDecode))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeQueryInvalidConfig))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeQueryRuntime))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeQueryUnknownStruct, "x")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want errors.ErrorCode
	}{
		{"nil", nil, errors.CodeOK},
		{"plain", stderrors.New("x"), errors.CodeUnknown},
		{"app", errors.Runtime("x"), errors.ErrCodeQueryRuntime},
		{"wrapped", fmt.Errorf("ctx: %w", errors.TypeMismatch("x")), errors.ErrCodeQueryTypeMismatch},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, errors.GetCode(tc.err))
		})
	}
}

func TestFactories_Codes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeNotFound, errors.NotFound("x").Code)
	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.CodeInternal, errors.Internal("x").Code)
	assert.Equal(t, errors.ErrCodeQueryInvalidConfig, errors.InvalidConfig("bad %d", 1).Code)
	assert.Equal(t, "bad 1", errors.InvalidConfig("bad %d", 1).Message)
	assert.Equal(t, errors.ErrCodeQueryRuntime, errors.Runtime("x").Code)
}
