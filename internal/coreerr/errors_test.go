package coreerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ErrorStringIncludesKindAndDetail(t *testing.T) {
	err := New(KindNotFound, "document missing")
	assert.Equal(t, "not_found: document missing", err.Error())
}

func TestError_ErrorStringOmitsDetailWhenEmpty(t *testing.T) {
	err := New(KindInternal, "")
	assert.Equal(t, "internal", err.Error())
}

func TestError_UnwrapReturnsCause(t *testing.T) {
	cause := errors.New("db connection reset")
	err := Wrap(KindInternal, cause, "append failed")
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOf_ExtractsKindThroughWrapping(t *testing.T) {
	err := Conflict("slot already bound")
	wrapped := fmt.Errorf("attach evidence: %w", err)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestKindOf_DefaultsToInternalForUnrelatedError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestKindOf_NilErrorDefaultsToInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestConvenienceConstructors_SetExpectedKind(t *testing.T) {
	cases := []struct {
		build func(string) *Error
		want  Kind
	}{
		{Unauthorized, KindUnauthorized},
		{ForbiddenRole, KindForbiddenRole},
		{ForbiddenTier, KindForbiddenTier},
		{ForbiddenScope, KindForbiddenScope},
		{Invalid, KindInvalidRequest},
		{NotFound, KindNotFound},
		{Conflict, KindConflict},
		{Internal, KindInternal},
	}
	for _, c := range cases {
		err := c.build("detail")
		assert.Equal(t, c.want, err.Kind)
	}
}

func TestHTTPStatus_MapsEveryKind(t *testing.T) {
	assert.Equal(t, 401, HTTPStatus(KindUnauthorized))
	assert.Equal(t, 403, HTTPStatus(KindForbiddenRole))
	assert.Equal(t, 403, HTTPStatus(KindForbiddenTier))
	assert.Equal(t, 403, HTTPStatus(KindForbiddenScope))
	assert.Equal(t, 400, HTTPStatus(KindInvalidRequest))
	assert.Equal(t, 404, HTTPStatus(KindNotFound))
	assert.Equal(t, 409, HTTPStatus(KindConflict))
	assert.Equal(t, 500, HTTPStatus(KindInternal))
}

func TestKind_StringMatchesHTTPStatusGrouping(t *testing.T) {
	assert.Equal(t, "unauthorized", KindUnauthorized.String())
	assert.Equal(t, "forbidden_scope", KindForbiddenScope.String())
	assert.Equal(t, "internal", Kind(999).String())
}
