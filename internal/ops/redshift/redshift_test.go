// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package redshift

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	redshiftv2 "github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

func init() {
	log.InitLoggerTo(io.Discard, "error")
}

// fakeRedshift holds one cluster whose status follows a script. "gone"
// reports ClusterNotFound.
type fakeRedshift struct {
	calls       []string
	status      []string
	snapshot    []string
	deleteFails int
	retention   int32
	// snapshotTaken and clusterGone report an earlier run's work.
	snapshotTaken bool
	clusterGone   bool
}

func (f *fakeRedshift) advance() string {
	if len(f.status) == 0 {
		return "gone"
	}
	s := f.status[0]
	if len(f.status) > 1 {
		f.status = f.status[1:]
	}
	return s
}

func (f *fakeRedshift) DescribeClusters(_ context.Context, in *redshiftv2.DescribeClustersInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClustersOutput, error) {
	s := f.advance()
	if s == "gone" {
		return nil, &types.ClusterNotFoundFault{Message: aws.String("Cluster not found")}
	}
	return &redshiftv2.DescribeClustersOutput{Clusters: []types.Cluster{{
		ClusterIdentifier: in.ClusterIdentifier,
		ClusterStatus:     aws.String(s),
		NodeType:          aws.String("ra3.xlplus"),
		NumberOfNodes:     aws.Int32(2),
	}}}, nil
}

func (f *fakeRedshift) DescribeClusterSnapshots(_ context.Context, in *redshiftv2.DescribeClusterSnapshotsInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClusterSnapshotsOutput, error) {
	if len(f.snapshot) == 0 {
		return &redshiftv2.DescribeClusterSnapshotsOutput{}, nil
	}
	s := f.snapshot[0]
	if len(f.snapshot) > 1 {
		f.snapshot = f.snapshot[1:]
	}
	return &redshiftv2.DescribeClusterSnapshotsOutput{Snapshots: []types.Snapshot{{
		SnapshotIdentifier: in.SnapshotIdentifier,
		Status:             aws.String(s),
	}}}, nil
}

func (f *fakeRedshift) PauseCluster(context.Context, *redshiftv2.PauseClusterInput, ...func(*redshiftv2.Options)) (*redshiftv2.PauseClusterOutput, error) {
	f.calls = append(f.calls, "pause")
	f.status = []string{"pausing", "paused"}
	return &redshiftv2.PauseClusterOutput{}, nil
}

func (f *fakeRedshift) ResumeCluster(context.Context, *redshiftv2.ResumeClusterInput, ...func(*redshiftv2.Options)) (*redshiftv2.ResumeClusterOutput, error) {
	f.calls = append(f.calls, "resume")
	f.status = []string{"resuming", "available"}
	return &redshiftv2.ResumeClusterOutput{}, nil
}

func (f *fakeRedshift) CreateClusterSnapshot(_ context.Context, in *redshiftv2.CreateClusterSnapshotInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.CreateClusterSnapshotOutput, error) {
	f.calls = append(f.calls, "snapshot "+aws.ToString(in.SnapshotIdentifier))
	if f.snapshotTaken {
		return nil, &types.ClusterSnapshotAlreadyExistsFault{Message: aws.String("snapshot exists")}
	}
	if f.snapshot == nil {
		f.snapshot = []string{"creating", "available"}
	}
	return &redshiftv2.CreateClusterSnapshotOutput{}, nil
}

func (f *fakeRedshift) ModifyClusterSnapshot(_ context.Context, in *redshiftv2.ModifyClusterSnapshotInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.ModifyClusterSnapshotOutput, error) {
	f.calls = append(f.calls, "retention")
	f.retention = aws.ToInt32(in.ManualSnapshotRetentionPeriod)
	return &redshiftv2.ModifyClusterSnapshotOutput{}, nil
}

func (f *fakeRedshift) DeleteCluster(_ context.Context, in *redshiftv2.DeleteClusterInput, _ ...func(*redshiftv2.Options)) (*redshiftv2.DeleteClusterOutput, error) {
	f.calls = append(f.calls, "delete")
	if f.clusterGone {
		return nil, &types.ClusterNotFoundFault{Message: aws.String("Cluster not found")}
	}
	if f.deleteFails > 0 {
		f.deleteFails--
		return nil, &types.InvalidClusterStateFault{Message: aws.String("modifying")}
	}
	if !aws.ToBool(in.SkipFinalClusterSnapshot) {
		return nil, errors.New("expected SkipFinalClusterSnapshot")
	}
	f.status = []string{"deleting", "gone"}
	return &redshiftv2.DeleteClusterOutput{}, nil
}

func runSteps(t *testing.T, steps []workflow.Step, item *workflow.WorkItem) error {
	t.Helper()
	e, err := workflow.New("redshift", steps,
		workflow.WithSleeper(func(context.Context, time.Duration) error { return nil }),
		workflow.HaltOnFailure())
	require.NoError(t, err)
	_, err = e.Run(context.Background(), []*workflow.WorkItem{item})
	return err
}

func TestTerminate(t *testing.T) {
	tests := []struct {
		name        string
		initial     string
		deleteFails int
		wantCalls   []string
	}{
		{
			name:      "available cluster",
			initial:   "available",
			wantCalls: []string{"snapshot prod-final-snapshot", "retention", "delete"},
		},
		{
			name:      "paused cluster is resumed first",
			initial:   "paused",
			wantCalls: []string{"resume", "snapshot prod-final-snapshot", "retention", "delete"},
		},
		{
			name:        "rejected delete is retried",
			initial:     "available",
			deleteFails: 2,
			wantCalls:   []string{"snapshot prod-final-snapshot", "retention", "delete", "delete", "delete"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeRedshift{status: []string{tt.initial}, deleteFails: tt.deleteFails}

			item, err := CheckCluster(context.Background(), api, "prod")
			require.NoError(t, err)
			assert.Equal(t, tt.initial, item.Attr(ColStatus))

			err = runSteps(t, TerminateSteps(api, DefaultTerminateOptions()), item)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCalls, api.calls)
			assert.Equal(t, int32(90), api.retention)
			assert.Equal(t, "prod-final-snapshot", item.Output(ColSnapshotID))
			assert.Equal(t, "90", item.Output(ColRetention))
		})
	}
}

func TestTerminateDeleteExhaustsRetries(t *testing.T) {
	api := &fakeRedshift{status: []string{"available"}, deleteFails: 10}
	item := workflow.NewWorkItem("prod", map[string]string{ColStatus: "available"})

	opts := DefaultTerminateOptions()
	opts.DeleteRetries = 2
	err := runSteps(t, TerminateSteps(api, opts), item)

	var apiErr *workflow.APICallError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 3, apiErr.Attempts)
	assert.Equal(t, "delete-cluster", item.FailedStep)
	assert.Equal(t, 5, item.Checkpoint)
}

func TestTerminateRerun(t *testing.T) {
	t.Run("existing final snapshot is kept", func(t *testing.T) {
		api := &fakeRedshift{status: []string{"available"}, snapshot: []string{"available"}, snapshotTaken: true}
		item := workflow.NewWorkItem("prod", map[string]string{ColStatus: "available"})

		require.NoError(t, runSteps(t, TerminateSteps(api, DefaultTerminateOptions()), item))
		assert.Equal(t, []string{"snapshot prod-final-snapshot", "retention", "delete"}, api.calls)
		assert.Equal(t, "prod-final-snapshot", item.Output(ColSnapshotID))
	})

	t.Run("cluster already deleted", func(t *testing.T) {
		api := &fakeRedshift{clusterGone: true}
		item := workflow.NewWorkItem("prod", map[string]string{ColStatus: "available", ColSnapshotID: "prod-final-snapshot"})
		item.Checkpoint = 5

		require.NoError(t, runSteps(t, TerminateSteps(api, DefaultTerminateOptions()), item))
		assert.Equal(t, []string{"delete"}, api.calls)
		assert.Equal(t, workflow.StateDone, item.State)
	})
}

func TestTerminateSnapshotFails(t *testing.T) {
	api := &fakeRedshift{status: []string{"available"}, snapshot: []string{"creating", "failed"}}
	item := workflow.NewWorkItem("prod", map[string]string{ColStatus: "available"})

	err := runSteps(t, TerminateSteps(api, DefaultTerminateOptions()), item)
	var statusErr *workflow.TerminalStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "final-snapshot", statusErr.Step)
	assert.NotContains(t, api.calls, "delete")
}

func TestPauseResume(t *testing.T) {
	api := &fakeRedshift{status: []string{"available"}}
	item := workflow.NewWorkItem("prod", nil)
	require.NoError(t, runSteps(t, PauseSteps(api), item))

	item = workflow.NewWorkItem("prod", nil)
	require.NoError(t, runSteps(t, ResumeSteps(api), item))
	assert.Equal(t, []string{"pause", "resume"}, api.calls)
}

func TestCheckClusterMissing(t *testing.T) {
	api := &fakeRedshift{}
	_, err := CheckCluster(context.Background(), api, "nope")
	require.Error(t, err)
	assert.Equal(t, workflow.ClassPrecondition, workflow.Classify(err))
	assert.Contains(t, err.Error(), "nope not found")
}

func TestWatch(t *testing.T) {
	api := &fakeRedshift{status: []string{"resuming", "resuming", "available"}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var seen []workflow.Status
	sleeps := 0
	sleep := func(ctx context.Context, _ time.Duration) error {
		sleeps++
		if sleeps == 3 {
			cancel()
		}
		return ctx.Err()
	}

	err := Watch(ctx, api, "prod", time.Second, sleep, func(s workflow.Status) { seen = append(seen, s) })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []workflow.Status{"resuming", "resuming", "available"}, seen)
}
