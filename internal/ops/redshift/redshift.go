// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package redshift

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	redshiftv2 "github.com/aws/aws-sdk-go-v2/service/redshift"
	"github.com/aws/aws-sdk-go-v2/service/redshift/types"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// API is the subset of the Redshift client used by opsctl.
type API interface {
	DescribeClusters(ctx context.Context, in *redshiftv2.DescribeClustersInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClustersOutput, error)
	DescribeClusterSnapshots(ctx context.Context, in *redshiftv2.DescribeClusterSnapshotsInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.DescribeClusterSnapshotsOutput, error)
	PauseCluster(ctx context.Context, in *redshiftv2.PauseClusterInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.PauseClusterOutput, error)
	ResumeCluster(ctx context.Context, in *redshiftv2.ResumeClusterInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.ResumeClusterOutput, error)
	CreateClusterSnapshot(ctx context.Context, in *redshiftv2.CreateClusterSnapshotInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.CreateClusterSnapshotOutput, error)
	ModifyClusterSnapshot(ctx context.Context, in *redshiftv2.ModifyClusterSnapshotInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.ModifyClusterSnapshotOutput, error)
	DeleteCluster(ctx context.Context, in *redshiftv2.DeleteClusterInput, optFns ...func(*redshiftv2.Options)) (*redshiftv2.DeleteClusterOutput, error)
}

var _ API = (*redshiftv2.Client)(nil)

// Cluster statuses the workflows act on.
const (
	StatusAvailable workflow.Status = "available"
	StatusPaused    workflow.Status = "paused"
	StatusDeleted   workflow.Status = "deleted"
)

// Item fields of the cluster workflows.
const (
	ColCluster    = "cluster"
	ColStatus     = "cluster_status"
	ColSnapshotID = "snapshot_id"
	ColRetention  = "retention_days"
)

// TerminateColumns are the result fields of a terminate.
var TerminateColumns = []string{ColCluster, ColSnapshotID, ColRetention}

// TerminateFailureColumns are the fields of a failed terminate, enough to
// resume it.
var TerminateFailureColumns = []string{ColCluster, ColStatus, ColSnapshotID, ColRetention}

// ClusterColumns are the result fields of pause and resume.
var ClusterColumns = []string{ColCluster}

// DescribeCluster returns the cluster named id.
func DescribeCluster(ctx context.Context, api API, id string) (types.Cluster, error) {
	out, err := api.DescribeClusters(ctx, &redshiftv2.DescribeClustersInput{ClusterIdentifier: aws.String(id)})
	if err != nil {
		return types.Cluster{}, awsx.Friendly(err, awsx.ErrorContext{Operation: "describe cluster", Resource: id})
	}
	for _, c := range out.Clusters {
		if aws.ToString(c.ClusterIdentifier) == id {
			return c, nil
		}
	}
	return types.Cluster{}, fmt.Errorf("describe cluster: %s not in output", id)
}

// ClusterStatus returns a Describer for a cluster's status. A cluster the
// service no longer knows reports StatusDeleted.
func ClusterStatus(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeClusters(ctx, &redshiftv2.DescribeClustersInput{ClusterIdentifier: aws.String(id)})
		if awsx.IsNotFound(err) {
			return StatusDeleted, nil
		}
		if err != nil {
			return "", err
		}
		if len(out.Clusters) == 0 {
			return StatusDeleted, nil
		}
		return workflow.Status(aws.ToString(out.Clusters[0].ClusterStatus)), nil
	}
}

// SnapshotStatus returns a Describer for a manual cluster snapshot.
func SnapshotStatus(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeClusterSnapshots(ctx, &redshiftv2.DescribeClusterSnapshotsInput{
			SnapshotIdentifier: aws.String(id),
			SnapshotType:       aws.String("manual"),
		})
		if err != nil {
			return "", err
		}
		if len(out.Snapshots) == 0 {
			return "", fmt.Errorf("snapshot %s not in describe output", id)
		}
		return workflow.Status(aws.ToString(out.Snapshots[0].Status)), nil
	}
}

// CheckCluster confirms the cluster exists and returns the WorkItem for it,
// carrying its current status for step guards.
func CheckCluster(ctx context.Context, api API, id string) (*workflow.WorkItem, error) {
	c, err := DescribeCluster(ctx, api, id)
	if err != nil {
		return nil, workflow.Precondition("cluster", id, err)
	}
	status := aws.ToString(c.ClusterStatus)
	log.Infof("cluster %s is present (status %s, %s x%d)",
		id, status, aws.ToString(c.NodeType), aws.ToInt32(c.NumberOfNodes))
	return workflow.NewWorkItem(id, map[string]string{ColCluster: id, ColStatus: status}), nil
}

// Watch reports the cluster status to onStatus every interval until ctx is
// done. The first report is immediate.
func Watch(ctx context.Context, api API, id string, interval time.Duration, sleep workflow.Sleeper, onStatus func(workflow.Status)) error {
	describe := ClusterStatus(api)
	for {
		status, err := describe(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return awsx.Friendly(err, awsx.ErrorContext{Operation: "describe cluster", Resource: id})
		}
		onStatus(status)
		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}
