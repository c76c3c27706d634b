package waerrors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestErrorError(t *testing.T) {
	err := &GuestErrorError{Message: "kaboom"}
	assert.Equal(t, "guest error: kaboom", err.Error())
	detail := err.ToErrorDetail()
	require.NotNil(t, detail)
	assert.Equal(t, "guest_error", detail.Type)
}

func TestBusyError(t *testing.T) {
	err := &BusyError{HostID: 7}
	assert.Contains(t, err.Error(), "7")
	assert.Equal(t, "busy", err.ToErrorDetail().Type)
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	cause := stderrors.New("trap: out of bounds memory access")

	gcf := &GuestCallFailureError{Err: cause}
	assert.ErrorIs(t, gcf, cause)

	initErr := &InitFailedError{Err: cause}
	assert.ErrorIs(t, initErr, cause)

	cbErr := &HostCallbackError{Err: cause}
	assert.ErrorIs(t, cbErr, cause)
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	detail := ToErrorDetail(&InvalidModuleError{Reason: "missing __guest_call export"})
	require.NotNil(t, detail)
	assert.Equal(t, "invalid_module", detail.Type)

	generic := ToErrorDetail(stderrors.New("boom"))
	require.NotNil(t, generic)
	assert.Equal(t, "internal", generic.Type)
}

func TestInvalidPayloadError(t *testing.T) {
	err := &InvalidPayloadError{Size: 2048, Limit: 1024}
	assert.Contains(t, err.Error(), "2048")
	assert.Contains(t, err.Error(), "1024")
}
