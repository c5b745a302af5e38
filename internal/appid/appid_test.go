package appid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	id := Get()
	assert.Equal(t, "ixra", id.BinaryName)
	assert.Equal(t, "IXRA", id.EnvPrefix)
	assert.NotEmpty(t, id.Description)
}

func TestEnvVar(t *testing.T) {
	assert.Equal(t, "IXRA_SERVER_PORT", Get().EnvVar("server_port"))
	assert.Equal(t, "APP_X", Identity{EnvPrefix: "APP_"}.EnvVar("x"))
}
