package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"quill/service"
)

func callMain() (int, string) {
	var exitCode int
	oldExit := exit
	defer func() { exit = oldExit }()
	exit = func(code int) {
		exitCode = code
		panic("exit")
	}

	// Capture output
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan bool)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if r != "exit" {
					panic(r)
				}
			}
			done <- true
		}()
		RealMain()
	}()

	outputDone := make(chan bool)
	go func() {
		_, _ = io.Copy(&buf, r)
		outputDone <- true
	}()

	<-done
	w.Close()
	os.Stdout = oldStdout
	<-outputDone

	return exitCode, buf.String()
}

func TestRealMain(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
	}{
		{
			name:           "no arguments",
			args:           []string{"quill"},
			expectedExit:   0,
			expectedOutput: "Usage:",
		},
		{
			name:           "help command",
			args:           []string{"quill", "help"},
			expectedExit:   0,
			expectedOutput: "Available Commands:",
		},
		{
			name:           "version command",
			args:           []string{"quill", "version"},
			expectedExit:   0,
			expectedOutput: "quill version " + service.Version,
		},
		{
			name:         "unknown command",
			args:         []string{"quill", "unknown"},
			expectedExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			exitCode, output := callMain()

			assert.Equal(t, tt.expectedExit, exitCode)
			assert.Contains(t, output, tt.expectedOutput)
		})
	}
}
