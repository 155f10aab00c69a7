package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateToolName(t *testing.T) {
	v := NewValidator()

	t.Run("valid names", func(t *testing.T) {
		for _, name := range []string{"git", "npm", "docker-compose", "aws.cli", "tool_2"} {
			assert.NoError(t, v.ValidateToolName(name), name)
		}
	})

	t.Run("invalid names", func(t *testing.T) {
		for _, name := range []string{"", "../etc/passwd", ".hidden", "has space", "a/b"} {
			assert.Error(t, v.ValidateToolName(name), name)
		}
	})
}

func TestValidatePermission(t *testing.T) {
	v := NewValidator()

	for _, perm := range []string{"read", "write", "execute", "network", "system", "admin"} {
		assert.NoError(t, v.ValidatePermission(perm), perm)
	}

	assert.Error(t, v.ValidatePermission("sudo"))
	assert.Error(t, v.ValidatePermission(""))
	assert.Error(t, v.ValidatePermission("READ"), "permission names are lowercase")
}

func TestValidateDimension(t *testing.T) {
	v := NewValidator()

	for _, dim := range []string{"memory_mb", "cpu_percent", "execution_time_sec", "file_size_mb", "network_requests"} {
		assert.NoError(t, v.ValidateDimension(dim), dim)
	}

	assert.Error(t, v.ValidateDimension("gpu_seconds"))
	assert.Error(t, v.ValidateDimension(""))
}

func TestValidateContextPair(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateContextPair("lang=go"))
	assert.NoError(t, v.ValidateContextPair("registry=private"))

	assert.Error(t, v.ValidateContextPair("lang"))
	assert.Error(t, v.ValidateContextPair("lang=go=extra"))
	assert.Error(t, v.ValidateContextPair("=value"))
}
