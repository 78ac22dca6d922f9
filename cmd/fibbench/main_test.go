package main

import (
	"bytes"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	if testing.Short() {
		t.Skip("naive fib(35) is slow")
	}

	tests := []struct {
		name    string
		env     map[string]string
		pattern string
	}{
		{"default label", nil, `^go: \d+ ms\n$`},
		{"label from environment", map[string]string{"HELLOWASM_LABEL": "rust"}, `^rust: \d+ ms\n$`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(&out, func(k string) string { return tt.env[k] }))
			assert.Regexp(t, tt.pattern, out.String())
		})
	}
}

// envRunMain makes the test binary act as fibbench itself.
const envRunMain = "FIBBENCH_RUN_MAIN"

func TestFibbench_ExitsZeroWhenStdoutFails(t *testing.T) {
	if os.Getenv(envRunMain) == "1" {
		main()
		return
	}
	if testing.Short() {
		t.Skip("naive fib(35) is slow")
	}

	// A read-only descriptor makes every write to stdout fail.
	stdout, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer stdout.Close()

	var stderr bytes.Buffer
	cmd := exec.Command(os.Args[0], "-test.run=^TestFibbench_ExitsZeroWhenStdoutFails$")
	cmd.Env = append(os.Environ(), envRunMain+"=1")
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	require.NoError(t, cmd.Run(), "stderr: %s", stderr.String())
	assert.Contains(t, stderr.String(), "fibbench:")
}
