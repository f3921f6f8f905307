// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package ec2

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2v2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/dustin/go-humanize"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// DiscoverOptions selects the instances and volumes Discover reports.
type DiscoverOptions struct {
	// State is an instance-state-name, e.g. "running".
	State string
	// TagKey and TagValues narrow instances to those tagged TagKey with one of
	// TagValues. An empty TagKey disables the tag filter.
	TagKey    string
	TagValues []string
	// Device is the attachment device of the volume to report.
	Device string
}

// Discover returns one WorkItem per unencrypted volume attached at
// opts.Device to a matching instance, keyed by instance id and carrying the
// VolumeColumns fields.
func Discover(ctx context.Context, api API, opts DiscoverOptions) ([]*workflow.WorkItem, error) {
	filters := []types.Filter{filter("instance-state-name", opts.State)}
	if opts.TagKey != "" {
		filters = append(filters, filter("tag:"+opts.TagKey, opts.TagValues...))
	}

	var items []*workflow.WorkItem
	var total int64

	instances := ec2v2.NewDescribeInstancesPaginator(api, &ec2v2.DescribeInstancesInput{Filters: filters})
	for instances.HasMorePages() {
		page, err := instances.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}

		for _, r := range page.Reservations {
			for _, inst := range r.Instances {
				id := aws.ToString(inst.InstanceId)
				state := ""
				if inst.State != nil {
					state = string(inst.State.Name)
				}

				vols, err := unencryptedVolumes(ctx, api, id, opts.Device)
				if err != nil {
					return nil, err
				}
				if len(vols) == 0 {
					log.Debugf("%s: no unencrypted volume at %s", id, opts.Device)
				}

				for _, v := range vols {
					size := aws.ToInt32(v.Size)
					total += int64(size)
					items = append(items, workflow.NewWorkItem(id, map[string]string{
						ColInstanceID:    id,
						ColRootVolumeID:  aws.ToString(v.VolumeId),
						ColSize:          strconv.Itoa(int(size)),
						ColAvailZone:     aws.ToString(v.AvailabilityZone),
						ColInstanceState: state,
					}))
				}
			}
		}
	}

	log.Infof("found %d unencrypted volume(s) at %s totalling %s",
		len(items), opts.Device, humanize.IBytes(uint64(total)<<30))
	return items, nil
}

func unencryptedVolumes(ctx context.Context, api API, instanceID, device string) ([]types.Volume, error) {
	var vols []types.Volume
	p := ec2v2.NewDescribeVolumesPaginator(api, &ec2v2.DescribeVolumesInput{
		Filters: []types.Filter{
			filter("attachment.instance-id", instanceID),
			filter("attachment.device", device),
			filter("encrypted", "false"),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe volumes for %s: %w", instanceID, err)
		}
		vols = append(vols, page.Volumes...)
	}
	return vols, nil
}

// UnencryptedSnapshots returns one WorkItem per snapshot owned by the caller
// that is not encrypted, keyed by snapshot id.
func UnencryptedSnapshots(ctx context.Context, api API) ([]*workflow.WorkItem, error) {
	var items []*workflow.WorkItem
	p := ec2v2.NewDescribeSnapshotsPaginator(api, &ec2v2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters:  []types.Filter{filter("encrypted", "false")},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe snapshots: %w", err)
		}
		for _, s := range page.Snapshots {
			id := aws.ToString(s.SnapshotId)
			items = append(items, workflow.NewWorkItem(id, map[string]string{
				ColSnapshotID: id,
				ColVolumeID:   aws.ToString(s.VolumeId),
			}))
		}
	}

	log.Infof("found %d unencrypted snapshot(s)", len(items))
	return items, nil
}
