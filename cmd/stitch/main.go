// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	stitch "github.com/pranavsinghpatil/Open-Acumen-sub001"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/capability"
	"github.com/pranavsinghpatil/Open-Acumen-sub001/events"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "stitch",
		Usage: "Import and normalize conversations from many platforms",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
				EnvVars: []string{"STITCH_LOG_LEVEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the import API over HTTP",
				Action: serveCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:    "addr",
						Usage:   "Listen address",
						Value:   ":8080",
						EnvVars: []string{"STITCH_ADDR"},
					},
					&cli.StringFlag{
						Name:    "api-token",
						Usage:   "Bearer token required on job routes",
						EnvVars: []string{"STITCH_API_TOKEN"},
					},
				),
			},
			{
				Name:      "import",
				Usage:     "Import payload files or references and wait for the job to finish",
				ArgsUsage: "<file-or-ref>...",
				Action:    importCommand,
				Flags: append(serviceFlags(),
					&cli.StringFlag{
						Name:     "owner",
						Aliases:  []string{"o"},
						Usage:    "Owner of the imported content",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "platform",
						Aliases:  []string{"p"},
						Usage:    "Source platform (chatgpt, claude, claude-code, reddit, podcast, ...)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Payload format; defaults to the file extension",
					},
					&cli.StringFlag{
						Name:  "translate-to",
						Usage: "Translate messages into this language",
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Title for the imported content",
					},
				),
			},
			{
				Name:      "status",
				Usage:     "Show the status of a job",
				ArgsUsage: "<job-id>",
				Action:    statusCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:   "jobs",
				Usage:  "List stored jobs, newest first",
				Action: jobsCommand,
				Flags:  []cli.Flag{dbFlag()},
			},
			{
				Name:      "messages",
				Usage:     "Print the normalized messages of an item as JSON lines",
				ArgsUsage: "<job-id> <item-id>",
				Action:    messagesCommand,
				Flags:     []cli.Flag{dbFlag()},
			},
			{
				Name:   "watch",
				Usage:  "Print job events published on NATS",
				Action: watchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "nats-url",
						Usage:    "NATS server URL",
						Required: true,
						EnvVars:  []string{"NATS_URL"},
					},
					&cli.StringFlag{
						Name:    "nats-token",
						Usage:   "NATS auth token",
						EnvVars: []string{"NATS_TOKEN"},
					},
					&cli.StringFlag{
						Name:  "nats-prefix",
						Usage: "Event subject prefix",
						Value: events.DefaultSubjectPrefix,
					},
				},
			},
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "db",
		Aliases:  []string{"d"},
		Usage:    "Path to BadgerDB database directory",
		Required: true,
		EnvVars:  []string{"STITCH_DB"},
	}
}

// serviceFlags are the flags of commands that run the pipeline.
func serviceFlags() []cli.Flag {
	defaults := capability.DefaultConfig()
	return []cli.Flag{
		dbFlag(),
		&cli.StringFlag{
			Name:    "capability-host",
			Usage:   "OpenAI-compatible API host for OCR and translation",
			Value:   defaults.Host,
			EnvVars: []string{"STITCH_CAPABILITY_HOST"},
		},
		&cli.StringFlag{
			Name:    "transcription-host",
			Usage:   "Transcription API host (defaults to capability-host)",
			EnvVars: []string{"STITCH_TRANSCRIPTION_HOST"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the capability host",
			Value:   defaults.APIKey,
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "vision-model",
			Usage: "Model used for OCR",
			Value: defaults.VisionModel,
		},
		&cli.StringFlag{
			Name:  "translation-model",
			Usage: "Model used for translation",
			Value: defaults.TranslationModel,
		},
		&cli.StringFlag{
			Name:  "transcription-model",
			Usage: "Speech-to-text model",
			Value: defaults.TranscriptionModel,
		},
		&cli.StringFlag{
			Name:  "diarization-model",
			Usage: "Speaker diarization model (empty disables diarization)",
			Value: defaults.DiarizationModel,
		},
		&cli.IntFlag{
			Name:  "max-concurrency",
			Usage: "Concurrent calls per capability service",
			Value: defaults.MaxConcurrency,
		},
		&cli.IntFlag{
			Name:  "text-workers",
			Usage: "Workers for text items (0 = number of CPUs)",
		},
		&cli.IntFlag{
			Name:  "media-workers",
			Usage: "Workers for media items",
			Value: 2,
		},
		&cli.StringFlag{
			Name:    "file-root",
			Usage:   "Confine file references to this directory",
			EnvVars: []string{"STITCH_FILE_ROOT"},
		},
		&cli.BoolFlag{
			Name:    "gcs",
			Usage:   "Enable gs:// references using application default credentials",
			EnvVars: []string{"STITCH_GCS"},
		},
		&cli.StringFlag{
			Name:    "nats-url",
			Usage:   "Publish job events to this NATS server",
			EnvVars: []string{"NATS_URL"},
		},
		&cli.StringFlag{
			Name:    "nats-token",
			Usage:   "NATS auth token",
			EnvVars: []string{"NATS_TOKEN"},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}

// openService builds a service from the service flags.
func openService(c *cli.Context) (*stitch.Service, error) {
	capConfig := capability.NewConfig(
		capability.WithHost(c.String("capability-host")),
		capability.WithTranscriptionHost(c.String("transcription-host")),
		capability.WithAPIKey(c.String("api-key")),
		capability.WithVisionModel(c.String("vision-model")),
		capability.WithTranslationModel(c.String("translation-model")),
		capability.WithTranscriptionModel(c.String("transcription-model")),
		capability.WithDiarizationModel(c.String("diarization-model")),
		capability.WithMaxConcurrency(c.Int("max-concurrency")),
	)
	if err := capConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid capability configuration: %w", err)
	}

	opts := []stitch.ServiceOption{
		stitch.WithCapabilityConfig(capConfig),
		stitch.WithFileRoot(c.String("file-root")),
		stitch.WithPipelineOptions(pipelineOptions(c)...),
	}
	if c.Bool("gcs") {
		opts = append(opts, stitch.WithGCS())
	}
	if url := c.String("nats-url"); url != "" {
		opts = append(opts, stitch.WithNATS(url, c.String("nats-token"), ""))
	}

	svc, err := stitch.NewService(c.String("db"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return svc, nil
}
