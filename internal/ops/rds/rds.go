// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package rds

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	rdsv2 "github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/samber/lo"

	awsx "github.com/tfctl/opsctl/internal/aws"
	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// API is the subset of the RDS client used by opsctl.
type API interface {
	DescribeDBInstances(ctx context.Context, in *rdsv2.DescribeDBInstancesInput, optFns ...func(*rdsv2.Options)) (*rdsv2.DescribeDBInstancesOutput, error)
	DescribeDBSnapshots(ctx context.Context, in *rdsv2.DescribeDBSnapshotsInput, optFns ...func(*rdsv2.Options)) (*rdsv2.DescribeDBSnapshotsOutput, error)
	CreateDBSnapshot(ctx context.Context, in *rdsv2.CreateDBSnapshotInput, optFns ...func(*rdsv2.Options)) (*rdsv2.CreateDBSnapshotOutput, error)
	DeleteDBInstance(ctx context.Context, in *rdsv2.DeleteDBInstanceInput, optFns ...func(*rdsv2.Options)) (*rdsv2.DeleteDBInstanceOutput, error)
	RestoreDBInstanceFromDBSnapshot(ctx context.Context, in *rdsv2.RestoreDBInstanceFromDBSnapshotInput, optFns ...func(*rdsv2.Options)) (*rdsv2.RestoreDBInstanceFromDBSnapshotOutput, error)
}

var _ API = (*rdsv2.Client)(nil)

// StatusDeleted is reported for an instance the service no longer knows.
const StatusDeleted workflow.Status = "deleted"

// DescribeInstance returns the DB instance named id.
func DescribeInstance(ctx context.Context, api API, id string) (types.DBInstance, error) {
	out, err := api.DescribeDBInstances(ctx, &rdsv2.DescribeDBInstancesInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		return types.DBInstance{}, awsx.Friendly(err, awsx.ErrorContext{Operation: "describe db instance", Resource: id})
	}
	for _, inst := range out.DBInstances {
		if aws.ToString(inst.DBInstanceIdentifier) == id {
			return inst, nil
		}
	}
	return types.DBInstance{}, fmt.Errorf("describe db instance: %s not in output", id)
}

// InstanceStatus returns a Describer for a DB instance's status. A missing
// instance reports StatusDeleted.
func InstanceStatus(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeDBInstances(ctx, &rdsv2.DescribeDBInstancesInput{DBInstanceIdentifier: aws.String(id)})
		if awsx.IsNotFound(err) {
			return StatusDeleted, nil
		}
		if err != nil {
			return "", err
		}
		if len(out.DBInstances) == 0 {
			return StatusDeleted, nil
		}
		return workflow.Status(aws.ToString(out.DBInstances[0].DBInstanceStatus)), nil
	}
}

// SnapshotStatus returns a Describer for a manual DB snapshot's status.
func SnapshotStatus(api API) workflow.Describer {
	return func(ctx context.Context, id string) (workflow.Status, error) {
		out, err := api.DescribeDBSnapshots(ctx, &rdsv2.DescribeDBSnapshotsInput{DBSnapshotIdentifier: aws.String(id)})
		if err != nil {
			return "", err
		}
		if len(out.DBSnapshots) == 0 {
			return "", fmt.Errorf("snapshot %s not in describe output", id)
		}
		return workflow.Status(aws.ToString(out.DBSnapshots[0].Status)), nil
	}
}

// Settings are the properties of an instance carried over when it is
// replaced by a restore.
type Settings struct {
	InstanceClass           *string
	Port                    *int32
	AvailabilityZone        *string
	SubnetGroupName         *string
	MultiAZ                 *bool
	PubliclyAccessible      *bool
	AutoMinorVersionUpgrade *bool
	LicenseModel            *string
	Engine                  *string
	OptionGroupName         *string
	StorageType             *string
	VpcSecurityGroupIDs     []string
	ParameterGroupName      *string
	BackupTarget            *string
	NetworkType             *string
	Tags                    []types.Tag
}

// SettingsOf captures the restore settings of inst.
func SettingsOf(inst types.DBInstance) Settings {
	s := Settings{
		InstanceClass:           inst.DBInstanceClass,
		AvailabilityZone:        inst.AvailabilityZone,
		MultiAZ:                 inst.MultiAZ,
		PubliclyAccessible:      inst.PubliclyAccessible,
		AutoMinorVersionUpgrade: inst.AutoMinorVersionUpgrade,
		LicenseModel:            inst.LicenseModel,
		Engine:                  inst.Engine,
		StorageType:             inst.StorageType,
		BackupTarget:            inst.BackupTarget,
		NetworkType:             inst.NetworkType,
		Tags:                    inst.TagList,
		VpcSecurityGroupIDs: lo.FilterMap(inst.VpcSecurityGroups, func(g types.VpcSecurityGroupMembership, _ int) (string, bool) {
			return aws.ToString(g.VpcSecurityGroupId), g.VpcSecurityGroupId != nil
		}),
	}
	if inst.Endpoint != nil {
		s.Port = inst.Endpoint.Port
	}
	if inst.DBSubnetGroup != nil {
		s.SubnetGroupName = inst.DBSubnetGroup.DBSubnetGroupName
	}
	if len(inst.OptionGroupMemberships) > 0 {
		s.OptionGroupName = inst.OptionGroupMemberships[0].OptionGroupName
	}
	if len(inst.DBParameterGroups) > 0 {
		s.ParameterGroupName = inst.DBParameterGroups[0].DBParameterGroupName
	}
	return s
}

// CaptureTarget describes the instance a restore will replace and returns its
// settings. Failure is a precondition error: nothing has been changed yet.
func CaptureTarget(ctx context.Context, api API, target string) (Settings, error) {
	inst, err := DescribeInstance(ctx, api, target)
	if err != nil {
		return Settings{}, workflow.Precondition("target instance", target, err)
	}
	s := SettingsOf(inst)
	log.Infof("%s: class=%s engine=%s az=%s subnet-group=%s multi-az=%t",
		target, aws.ToString(s.InstanceClass), aws.ToString(s.Engine), aws.ToString(s.AvailabilityZone),
		aws.ToString(s.SubnetGroupName), aws.ToBool(s.MultiAZ))
	return s, nil
}

// Identifiers derives the names a restore creates. Instance and snapshot
// identifiers allow only letters, digits and hyphens, so the stamp's
// underscore becomes a hyphen.
func Identifiers(source, target, stamp string) (snapshot, finalSnapshot string) {
	stamp = strings.ReplaceAll(stamp, "_", "-")
	return fmt.Sprintf("%s-snap-%s", source, stamp), fmt.Sprintf("%s-final-snap-%s", target, stamp)
}
