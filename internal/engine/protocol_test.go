package engine

import (
	"errors"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConnectionRefusedDirect(t *testing.T) {
	assert.True(t, isConnectionRefused(syscall.ECONNREFUSED))
}

func TestIsConnectionRefusedWrappedInOpError(t *testing.T) {
	err := &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}
	assert.True(t, isConnectionRefused(err))
}

func TestIsConnectionRefusedFalseForOtherErrors(t *testing.T) {
	assert.False(t, isConnectionRefused(errors.New("boom")))
	assert.False(t, isConnectionRefused(&net.OpError{Op: "dial", Err: errors.New("timeout")}))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, statusSuccess, classifyStatus(200))
	assert.Equal(t, statusSuccess, classifyStatus(202))
	for _, miss := range []int{204, 301, 302, 304, 400, 404, 405, 413, 417, 500, 501, 503} {
		assert.Equal(t, statusMiss, classifyStatus(miss), "status %d", miss)
	}
	assert.Equal(t, statusUnknown, classifyStatus(418))
	assert.Equal(t, statusUnknown, classifyStatus(201))
}
