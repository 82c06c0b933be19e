package flagx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvString(t *testing.T) {
	dst := "default"
	EnvString(&dst, "FLAGX_TEST_UNSET")
	assert.Equal(t, "default", dst)

	t.Setenv("FLAGX_TEST_STR", "http://example.org")
	EnvString(&dst, "FLAGX_TEST_STR")
	assert.Equal(t, "http://example.org", dst)
}

func TestEnvDuration(t *testing.T) {
	dst := time.Minute

	t.Setenv("FLAGX_TEST_DUR", "90s")
	EnvDuration(&dst, "FLAGX_TEST_DUR")
	assert.Equal(t, 90*time.Second, dst)

	t.Setenv("FLAGX_TEST_DUR", "15")
	EnvDuration(&dst, "FLAGX_TEST_DUR")
	assert.Equal(t, 15*time.Second, dst)

	t.Setenv("FLAGX_TEST_DUR", "whenever")
	EnvDuration(&dst, "FLAGX_TEST_DUR")
	assert.Equal(t, 15*time.Second, dst, "garbage must leave the value untouched")
}

func TestEnvInt(t *testing.T) {
	dst := 5
	t.Setenv("FLAGX_TEST_INT", "9")
	EnvInt(&dst, "FLAGX_TEST_INT")
	assert.Equal(t, 9, dst)

	t.Setenv("FLAGX_TEST_INT", "nine")
	EnvInt(&dst, "FLAGX_TEST_INT")
	assert.Equal(t, 9, dst)
}
