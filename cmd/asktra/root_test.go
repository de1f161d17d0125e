package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ask", "dataset", "findings"} {
		assert.True(t, names[want], "command %q not registered", want)
	}
}

func TestAskRequiresQuestion(t *testing.T) {
	require.NotNil(t, askCmd.Args)
	assert.Error(t, askCmd.Args(askCmd, nil))
	assert.NoError(t, askCmd.Args(askCmd, []string{"why is staging slow?"}))
}

func TestFindingsGetRequiresID(t *testing.T) {
	assert.Error(t, findingsGetCmd.Args(findingsGetCmd, nil))
	assert.NoError(t, findingsGetCmd.Args(findingsGetCmd, []string{"f-1"}))
}
