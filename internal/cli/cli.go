// Package cli parses the command line into an app.Config.
package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/pipewright/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app.Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pipewright", flag.ContinueOnError)
	flagSet.SetOutput(output)

	// Custom usage/help text function
	flagSet.Usage = func() {
		fmt.Fprint(output, `
Pipewright - A declarative, concurrency-first pipeline runner.

Usage:
  pipewright [options] [PIPELINE_PATH]

Arguments:
  PIPELINE_PATH
    Path to a pipeline definition file or a directory of definition files.

Options:
`)
		flagSet.PrintDefaults()
	}

	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline definition file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline definition file or directory (shorthand).")
	formatFlag := flagSet.String("format", "hcl", "Definition format. Options: 'hcl' or 'yaml'.")
	serveFlag := flagSet.String("serve", "", "Address to serve the push webhook on, e.g. ':8080'. Empty runs once and exits.")
	logFormatFlag := flagSet.String("log-format", "json", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", 0, "Number of concurrent job workers. 0 uses one per CPU.")
	cacheDirFlag := flagSet.String("cache-dir", "", "Directory for the build cache. Empty disables caching.")
	artifactBucketFlag := flagSet.String("artifact-bucket", "", "S3 bucket for published artifacts.")
	artifactPrefixFlag := flagSet.String("artifact-prefix", "", "Key prefix for published artifacts.")
	artifactDirFlag := flagSet.String("artifact-dir", "", "Local directory for published artifacts, instead of S3.")
	plainHTTPFlag := flagSet.Bool("registry-plain-http", false, "Use HTTP for the image registry. For local registries only.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *pipelineFlag != "" {
		path = *pipelineFlag
	} else if *pFlag != "" {
		path = *pFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Pipeline path determined.", "path", path)

	if path == "" {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	format := strings.ToLower(*formatFlag)
	if format != "hcl" && format != "yaml" {
		return nil, false, &ExitError{Code: 2, Message: "invalid format: must be 'hcl' or 'yaml'"}
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *artifactBucketFlag != "" && *artifactDirFlag != "" {
		return nil, false, &ExitError{Code: 2, Message: "artifact-bucket and artifact-dir are mutually exclusive"}
	}
	slog.Debug("CLI parameter validation complete.")

	return &app.Config{
		PipelinePath:      path,
		Format:            format,
		ServeAddr:         *serveFlag,
		LogFormat:         logFormat,
		LogLevel:          logLevel,
		WorkerCount:       *workersFlag,
		CacheDir:          *cacheDirFlag,
		ArtifactBucket:    *artifactBucketFlag,
		ArtifactPrefix:    *artifactPrefixFlag,
		ArtifactDir:       *artifactDirFlag,
		RegistryPlainHTTP: *plainHTTPFlag,
	}, false, nil
}
