package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	cause := errors.New("retention.days: must be between 30 and 730")

	tests := []struct {
		name string
		err  *ConfigError
		want string
	}{
		{"with path", NewConfigError("/etc/tollgate.yaml", cause), "config error in /etc/tollgate.yaml: retention.days: must be between 30 and 730"},
		{"without path", NewConfigError("", cause), "config error: retention.days: must be between 30 and 730"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
			}
			if !errors.Is(tt.err, cause) {
				t.Error("ConfigError should unwrap to its cause")
			}
		})
	}
}

func TestCommandError(t *testing.T) {
	underlying := errors.New("underlying error")
	err := NewCommandError("run", underlying)

	if want := "command run failed: underlying error"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, underlying) {
		t.Error("CommandError should unwrap to its cause")
	}
}

func TestPartialFailureError(t *testing.T) {
	err := &PartialFailureError{Job: "monthly reset", Failed: 2, Total: 10}
	if want := "monthly reset completed with 2 of 10 failures"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitError},
		{"config", NewConfigError("x.yaml", errors.New("bad")), ExitConfigError},
		{"wrapped config", fmt.Errorf("startup: %w", NewConfigError("", errors.New("bad"))), ExitConfigError},
		{"partial", &PartialFailureError{Job: "reset", Failed: 1, Total: 3}, ExitPartialFailed},
		{"command wrapping partial", NewCommandError("reset", &PartialFailureError{Job: "reset", Failed: 1, Total: 3}), ExitPartialFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
