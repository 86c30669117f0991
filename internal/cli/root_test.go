package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "kwsearch", cmd.Use)
	assert.Contains(t, cmd.Long, "candidate networks")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"search", "networks", "sql", "validate", "test"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestQueryCommandFlags(t *testing.T) {
	defaults := map[string]string{
		"db":                "",
		"driver":            "sqlite",
		"schema":            "",
		"top-k":             "10",
		"max-size":          "4",
		"semantics":         "or",
		"timeout":           "30s",
		"deadline":          "0s",
		"max-steps":         "0",
		"restrict":          "ids",
		"parallel":          "4",
		"coverage-exponent": "2",
	}

	for _, name := range []string{"search", "networks", "sql"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{name})
			require.NoError(t, err)

			for flag, want := range defaults {
				f := sub.Flags().Lookup(flag)
				require.NotNil(t, f, "flag --%s", flag)
				assert.Equal(t, want, f.DefValue, "flag --%s", flag)
			}
			assert.Equal(t, "k", sub.Flags().Lookup("top-k").Shorthand)
		})
	}
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	require.NotNil(t, testCmd.Flags().Lookup("update"))
	require.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	_, err := execute(t, "--format", "invalid", "validate", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestQueryCommandRequiresFlags(t *testing.T) {
	_, err := execute(t, "search", "alpha")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
