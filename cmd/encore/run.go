// Encore - Concert Discovery Ingestion and Trending Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/encore

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/encore/internal/jobs"
	"github.com/tomtom215/encore/internal/logging"
)

// errRunFailed makes the process exit non-zero after a failed run has
// already been printed.
var errRunFailed = errors.New("run failed")

func newRunCmd(opts *rootOptions) *cobra.Command {
	names := make([]string, len(jobs.Pipelines))
	for i, p := range jobs.Pipelines {
		names[i] = string(p)
	}
	return &cobra.Command{
		Use:       "run <pipeline>",
		Short:     "Run one pipeline and print its result",
		Long:      "Run one pipeline (" + strings.Join(names, ", ") + ") once and print the JSON result.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := jobs.ParsePipeline(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, func(a *app) error {
				res := a.pipeline.Run(logging.ContextWithNewCorrelationID(cmd.Context()), name)
				return printResult(cmd.OutOrStdout(), res, res.Success)
			})
		},
	}
}

func newJobCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "job <type> [payload]",
		Short: "Run one job and print its result",
		Long:  "Run one job with an optional JSON payload. A payload of - is read from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := jobs.ParseJobType(args[0])
			if err != nil {
				return err
			}
			var payload json.RawMessage
			if len(args) == 2 {
				if payload, err = readPayload(cmd.InOrStdin(), args[1]); err != nil {
					return err
				}
			}
			return withApp(opts, func(a *app) error {
				jc := jobs.JobContext{Priority: jobs.PriorityHigh, Metadata: map[string]string{"source": "cli"}}
				res := a.processor.Execute(logging.ContextWithNewCorrelationID(cmd.Context()), t, payload, jc)
				return printResult(cmd.OutOrStdout(), res, res.Success)
			})
		},
	}
}

// withApp builds the app for one command and closes it afterwards.
func withApp(opts *rootOptions, fn func(*app) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	runErr := fn(a)
	if err := a.close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close resources")
	}
	return runErr
}

func readPayload(stdin io.Reader, arg string) (json.RawMessage, error) {
	raw := []byte(arg)
	if arg == "-" {
		var err error
		if raw, err = io.ReadAll(io.LimitReader(stdin, 1<<20)); err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
	}
	if !json.Valid(raw) {
		return nil, errors.New("payload is not valid JSON")
	}
	return raw, nil
}

func printResult(w io.Writer, v any, success bool) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(out)); err != nil {
		return err
	}
	if !success {
		return errRunFailed
	}
	return nil
}
