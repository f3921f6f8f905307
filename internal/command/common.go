// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/meta"
	datasyncops "github.com/tfctl/opsctl/internal/ops/datasync"
	ec2ops "github.com/tfctl/opsctl/internal/ops/ec2"
	rdsops "github.com/tfctl/opsctl/internal/ops/rds"
	redshiftops "github.com/tfctl/opsctl/internal/ops/redshift"
	"github.com/tfctl/opsctl/internal/resultlog"
	"github.com/tfctl/opsctl/internal/workflow"
)

// services are the AWS APIs the commands talk to.
type services struct {
	EC2      ec2ops.API
	RDS      rdsops.API
	Redshift redshiftops.API
	DataSync datasyncops.API
	STS      awsx.STSAPI
	Region   string
}

// awsTarget selects the credentials, region and SDK retry budget of a
// connect. Zero values inherit the shell's AWS setup and the SDK defaults.
type awsTarget struct {
	Profile string
	Region  string
	// Attempts caps the SDK's attempts per call.
	Attempts int
}

// connect builds the service clients for a target. Tests replace it with
// fakes.
var connect = func(ctx context.Context, t awsTarget) (*services, error) {
	cfg, err := awsx.LoadAWSConfig(ctx,
		awsx.WithProfile(t.Profile),
		awsx.WithRegion(t.Region),
		awsx.WithMaxAttempts(t.Attempts))
	if err != nil {
		return nil, err
	}
	c := awsx.NewClients(cfg)
	return &services{
		EC2:      c.EC2,
		RDS:      c.RDS,
		Redshift: c.Redshift,
		DataSync: c.DataSync,
		STS:      c.STS,
		Region:   cfg.Region,
	}, nil
}

// sleeper waits between poll attempts. Tests replace it.
var sleeper workflow.Sleeper = workflow.ContextSleep

// connectFrom builds services from the --profile, --region and --api-retries
// flags.
func connectFrom(ctx context.Context, cmd *cli.Command) (*services, error) {
	return connect(ctx, targetOf(cmd, cmd.String("profile")))
}

func targetOf(cmd *cli.Command, profile string) awsTarget {
	t := awsTarget{Profile: profile, Region: cmd.String("region")}
	if cmd.IsSet("api-retries") {
		t.Attempts = int(cmd.Int("api-retries")) + 1
	}
	return t
}

// GetMeta returns the meta.Meta stored in the Metadata of cmd or one of its
// parents. If missing it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range cmd.Lineage() {
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stdin(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

// rowsOf projects items onto columns for output.Spit.
func rowsOf(items []*workflow.WorkItem, columns []string) []map[string]interface{} {
	return lo.Map(items, func(item *workflow.WorkItem, _ int) map[string]interface{} {
		row := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			row[c] = item.Value(c)
		}
		return row
	})
}

// runSpec describes how a workflow run is recorded.
type runSpec struct {
	// Prefix names the result log, <prefix>_<stamp>.csv. Failures go to
	// <prefix>_failed_<stamp>.csv.
	Prefix string
	// Columns of a result record.
	Columns []string
	// FailureColumns of a failure record, before the checkpoint, step and
	// error columns. A failure file is only written when set.
	FailureColumns []string
	// Halt stops at the first failed item.
	Halt bool
}

// resumeItem reads the failed item of a --resume file, or returns nil when
// the flag is not set. A single-target run records at most one failed item.
func resumeItem(cmd *cli.Command, keyColumn string, required ...string) (*workflow.WorkItem, error) {
	path := cmd.String("resume")
	if path == "" {
		return nil, nil
	}
	items, err := resultlog.ReadFile(path, keyColumn, required...)
	if err != nil {
		return nil, err
	}
	if len(items) != 1 {
		return nil, fmt.Errorf("%s: want one failed item, found %d", path, len(items))
	}
	item := items[0]
	log.Infof("resuming %s from %s at step %d", item.Key, path, item.Checkpoint+1)
	return item, nil
}

// pollingOverrides applies --poll-interval and --max-attempts to every step.
func pollingOverrides(cmd *cli.Command, steps []workflow.Step) []workflow.Step {
	interval := cmd.Duration("poll-interval")
	attempts := int(cmd.Int("max-attempts"))
	if interval <= 0 && attempts <= 0 {
		return steps
	}
	log.Debugf("polling overrides: interval=%s attempts=%d", interval, attempts)
	out := make([]workflow.Step, len(steps))
	for i, s := range steps {
		out[i] = s.WithPolling(interval, attempts)
	}
	return out
}

// runWorkflow runs steps over items, appending every finished item to the
// result log as it completes. It returns an error when the run fails or any
// item does.
func runWorkflow(ctx context.Context, cmd *cli.Command, name string, steps []workflow.Step, items []*workflow.WorkItem, spec runSpec) (*workflow.Report, error) {
	m := GetMeta(cmd)
	stamp := m.Stamp()
	dir := cmd.String("out-dir")

	results := resultlog.NewWriter(dir, spec.Prefix, stamp, resultlog.Fields(spec.Columns...))
	defer closeLog(results)

	opts := []workflow.Option{
		workflow.WithSink(results),
		workflow.WithSleeper(sleeper),
	}

	var failures *resultlog.Writer
	if len(spec.FailureColumns) > 0 {
		failures = resultlog.NewWriter(dir, spec.Prefix+"_failed", stamp, resultlog.FailureFields(spec.FailureColumns...))
		defer closeLog(failures)
		opts = append(opts, workflow.WithFailureSink(failures))
	}
	if spec.Halt {
		opts = append(opts, workflow.HaltOnFailure())
	}

	engine, err := workflow.New(name, pollingOverrides(cmd, steps), opts...)
	if err != nil {
		return nil, err
	}

	report, err := engine.Run(ctx, items)
	summarize(report, results, failures)
	if err != nil {
		return report, err
	}
	if n := len(report.Failed); n > 0 {
		return report, fmt.Errorf("%s: %d of %d item(s) failed", name, n, len(items))
	}
	return report, nil
}

func summarize(report *workflow.Report, results, failures *resultlog.Writer) {
	if report == nil {
		return
	}
	log.Infof("%s: %s done, %s failed in %s", report.Workflow,
		humanize.Comma(int64(len(report.Done))),
		humanize.Comma(int64(len(report.Failed))),
		report.Elapsed().Round(time.Second))
	if results.Count() > 0 {
		log.Infof("results: %s", results.Path())
	}
	if failures != nil && failures.Count() > 0 {
		log.Warnf("failed items: %s (feed it back as input to resume)", failures.Path())
	}
}

func closeLog(w *resultlog.Writer) {
	if err := w.Close(); err != nil {
		log.WithError(err).Errorf("close %s", w.Path())
	}
}

// IsPrecondition reports whether err stopped a command before any change was
// made.
func IsPrecondition(err error) bool {
	var pe *workflow.PreconditionError
	return errors.As(err, &pe)
}
