// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package redshift

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	redshiftv2 "github.com/aws/aws-sdk-go-v2/service/redshift"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

const (
	clusterPoll     = 10 * time.Second
	clusterAttempts = 180
	deleteAttempts  = 360
)

func awaitAvailable(api API) workflow.Step {
	return workflow.Step{
		Name:         "await-available",
		Action:       workflow.Observe(workflow.ItemKey),
		Describe:     ClusterStatus(api),
		Success:      workflow.StatusIn(StatusAvailable),
		PollInterval: clusterPoll,
		MaxAttempts:  clusterAttempts,
	}
}

func resumeStep(api API) workflow.Step {
	return workflow.Step{
		Name: "resume-cluster",
		Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
			if _, err := api.ResumeCluster(ctx, &redshiftv2.ResumeClusterInput{ClusterIdentifier: aws.String(item.Key)}); err != nil {
				return workflow.Handle{}, err
			}
			return workflow.HandleOf(item.Key), nil
		},
		Describe:     ClusterStatus(api),
		Success:      workflow.StatusIn(StatusAvailable),
		PollInterval: clusterPoll,
		MaxAttempts:  clusterAttempts,
	}
}

// PauseSteps pauses a cluster.
func PauseSteps(api API) []workflow.Step {
	return []workflow.Step{{
		Name: "pause-cluster",
		Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
			if _, err := api.PauseCluster(ctx, &redshiftv2.PauseClusterInput{ClusterIdentifier: aws.String(item.Key)}); err != nil {
				return workflow.Handle{}, err
			}
			return workflow.HandleOf(item.Key), nil
		},
		Describe:     ClusterStatus(api),
		Success:      workflow.StatusIn(StatusPaused),
		PollInterval: clusterPoll,
		MaxAttempts:  clusterAttempts,
	}}
}

// ResumeSteps resumes a paused cluster.
func ResumeSteps(api API) []workflow.Step {
	return []workflow.Step{resumeStep(api)}
}

// WasPaused is the guard on resuming before a terminate.
func WasPaused(item *workflow.WorkItem) bool {
	return item.Attr(ColStatus) == string(StatusPaused)
}

// FinalSnapshotID names the snapshot kept when a cluster is terminated.
func FinalSnapshotID(cluster string) string {
	return cluster + "-final-snapshot"
}

// TerminateOptions configures a terminate.
type TerminateOptions struct {
	// RetentionDays is how long the final snapshot is kept.
	RetentionDays int
	// DeleteRetries bounds how many times a rejected delete is re-issued.
	DeleteRetries int
	RetryDelay    time.Duration
}

// DefaultTerminateOptions keeps the snapshot 90 days and re-issues a rejected
// delete up to 5 times, 10 seconds apart.
func DefaultTerminateOptions() TerminateOptions {
	return TerminateOptions{RetentionDays: 90, DeleteRetries: 5, RetryDelay: 10 * time.Second}
}

// TerminateSteps keeps a final snapshot of a cluster and deletes it. A paused
// cluster is resumed first since a snapshot needs an available cluster. A
// final snapshot that already exists is taken as the one to keep, and a
// cluster already gone as deleted, so a failed terminate can be run again
// from its checkpoint.
func TerminateSteps(api API, opts TerminateOptions) []workflow.Step {
	if opts.RetentionDays == 0 {
		opts.RetentionDays = 90
	}

	resume := resumeStep(api).Guarded(WasPaused)
	resume.Name = "resume-if-paused"

	return []workflow.Step{
		resume,
		awaitAvailable(api),
		{
			Name: "final-snapshot",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				snap := FinalSnapshotID(item.Key)
				_, err := api.CreateClusterSnapshot(ctx, &redshiftv2.CreateClusterSnapshotInput{
					ClusterIdentifier:  aws.String(item.Key),
					SnapshotIdentifier: aws.String(snap),
				})
				if awsx.ErrorCode(err) == "ClusterSnapshotAlreadyExists" {
					log.Warnf("%s: %s already exists, keeping it", item.Key, snap)
					err = nil
				}
				if err != nil {
					return workflow.Handle{}, err
				}
				item.SetOutput(ColSnapshotID, snap)
				return workflow.HandleOf(snap), nil
			},
			Describe:     SnapshotStatus(api),
			Success:      workflow.StatusIn("available"),
			Failure:      workflow.StatusIn("failed", "deleted"),
			PollInterval: clusterPoll,
			MaxAttempts:  deleteAttempts,
		},
		{
			Name: "set-retention",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				_, err := api.ModifyClusterSnapshot(ctx, &redshiftv2.ModifyClusterSnapshotInput{
					SnapshotIdentifier:            aws.String(FinalSnapshotID(item.Key)),
					ManualSnapshotRetentionPeriod: aws.Int32(int32(opts.RetentionDays)),
				})
				if err != nil {
					return workflow.Handle{}, err
				}
				item.SetOutput(ColRetention, strconv.Itoa(opts.RetentionDays))
				return workflow.Handle{}, nil
			},
		},
		awaitAvailable(api),
		{
			Name: "delete-cluster",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				_, err := api.DeleteCluster(ctx, &redshiftv2.DeleteClusterInput{
					ClusterIdentifier:        aws.String(item.Key),
					SkipFinalClusterSnapshot: aws.Bool(true),
				})
				if awsx.IsNotFound(err) {
					log.Warnf("%s: already deleted", item.Key)
					err = nil
				}
				if err != nil {
					return workflow.Handle{}, err
				}
				return workflow.HandleOf(item.Key), nil
			},
			Describe:      ClusterStatus(api),
			Success:       workflow.StatusIn(StatusDeleted),
			PollInterval:  clusterPoll,
			MaxAttempts:   deleteAttempts,
			ActionRetries: opts.DeleteRetries,
			RetryDelay:    opts.RetryDelay,
		},
	}
}
