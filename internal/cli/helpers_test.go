package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

const (
	networksDir  = "../../testdata/networks"
	scenariosDir = "../../testdata/scenarios"
)

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
