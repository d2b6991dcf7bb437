package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"aisubs/internal/config"
	"aisubs/internal/deps"
	"aisubs/internal/services"
	"aisubs/internal/services/openai"
)

// CheckAPIKey reports whether a service credential is configured without
// contacting the service.
func CheckAPIKey(cfg *config.Config) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	return Result{Name: name, Passed: true, Detail: "API key configured"}
}

// CheckAPI verifies that the API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckAPI(ctx context.Context, cfg *config.Config) Result {
	const name = "OpenAI API"
	if strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}, openai.WithRetryMaxAttempts(1))

	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeAPIError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckMediaTools reports ffmpeg and ffprobe availability.
func CheckMediaTools(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.MediaTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}

// RequireMediaTools fails with ErrExternalTool when ffmpeg or ffprobe is missing.
func RequireMediaTools(cfg *config.Config) error {
	missing := deps.Missing(CheckMediaTools(cfg))
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(missing))
	for _, status := range missing {
		names = append(names, status.Command)
	}
	return services.Wrap(services.ErrExternalTool, "preflight", "check media tools",
		fmt.Sprintf("missing %s", strings.Join(names, ", ")), nil)
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckOutputWritable fails with ErrValidation when the directory that will
// receive outputPath cannot be written.
func CheckOutputWritable(outputPath string) error {
	dir := filepath.Dir(outputPath)
	result := CheckDirectoryAccess("Output directory", dir)
	if result.Passed {
		return nil
	}
	return services.Wrap(services.ErrValidation, "preflight", "check output directory", result.Detail, nil)
}

func summarizeAPIError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (API unreachable)"
	}
	switch openai.StatusCode(err) {
	case 401, 403:
		return "auth failed (invalid api key)"
	}
	return err.Error()
}
