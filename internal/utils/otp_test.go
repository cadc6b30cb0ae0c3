package utils

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureOTP(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateSecureOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestGenerateTicketNumber(t *testing.T) {
	ticket := GenerateTicketNumber("TKT")
	assert.True(t, strings.HasPrefix(ticket, "TKT"))
	assert.Greater(t, len(ticket), len("TKT"))
}
