package scripts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Runner executes external tools and captures their output.
type Runner struct {
	environment []string
	logger      *logrus.Logger
}

func NewRunner(environment []string, logger *logrus.Logger) *Runner {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Runner{environment: environment, logger: logger}
}

// Run executes name with args and returns stdout. On failure the returned
// ScriptError carries stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	const op = "Runner.Run"

	r.logger.WithFields(logrus.Fields{
		"command": name,
		"args":    strings.Join(args, " "),
	}).Debug("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = buildEnvironment(r.environment)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrOutput := strings.TrimSpace(stderr.String())
		r.logger.WithFields(logrus.Fields{
			"command": name,
			"stderr":  stderrOutput,
		}).WithError(err).Error("Command execution failed")

		scriptErr := newScriptError(op, fmt.Errorf("%v (stderr: %s)", err, tail(stderrOutput, 2000)), name+" failed")
		scriptErr.Stderr = stderrOutput
		return nil, scriptErr
	}

	return stdout.Bytes(), nil
}

func buildEnvironment(additionalEnv []string) []string {
	env := os.Environ()
	if len(additionalEnv) > 0 {
		env = append(env, additionalEnv...)
	}
	return env
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
