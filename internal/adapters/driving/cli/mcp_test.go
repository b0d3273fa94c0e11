package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPServeCmd_Flags(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_RequiresQueryService(t *testing.T) {
	old := queryService
	queryService = nil
	defer func() { queryService = old }()

	_, err := execute(t, "", "mcp", "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "query service not configured")
}
