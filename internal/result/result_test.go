package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	r := Resolve([]string{"a", "b"})
	payload, errs := r.Unpack()
	assert.Empty(t, errs)
	assert.Equal(t, []string{"a", "b"}, payload)
	assert.False(t, r.Rejected())
}

func TestResolve_EmptyPayloadIsNotRejection(t *testing.T) {
	r := Resolve([]int{})
	payload, errs := r.Unpack()
	assert.Empty(t, errs)
	assert.NotNil(t, payload)
	assert.False(t, r.Rejected())
}

func TestReject(t *testing.T) {
	r := Reject[int]("connection refused", "retry exhausted")
	payload, errs := r.Unpack()
	assert.Zero(t, payload)
	assert.Equal(t, []string{"connection refused", "retry exhausted"}, errs)
	assert.True(t, r.Rejected())
}

func TestReject_NoMessages(t *testing.T) {
	r := Reject[string]()
	assert.True(t, r.Rejected())
	assert.NotEmpty(t, r.Errors())
}

func TestZeroValue_IsResolved(t *testing.T) {
	var r Result[int]
	assert.False(t, r.Rejected())
	assert.Nil(t, r.Errors())
}
