// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package datasync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	datasyncv2 "github.com/aws/aws-sdk-go-v2/service/datasync"
	"github.com/aws/aws-sdk-go-v2/service/datasync/types"

	"github.com/tfctl/opsctl/internal/log"
	"github.com/tfctl/opsctl/internal/workflow"
)

// API is the subset of the DataSync client used by opsctl.
type API interface {
	StartTaskExecution(ctx context.Context, in *datasyncv2.StartTaskExecutionInput, optFns ...func(*datasyncv2.Options)) (*datasyncv2.StartTaskExecutionOutput, error)
	DescribeTaskExecution(ctx context.Context, in *datasyncv2.DescribeTaskExecutionInput, optFns ...func(*datasyncv2.Options)) (*datasyncv2.DescribeTaskExecutionOutput, error)
}

var _ API = (*datasyncv2.Client)(nil)

// Item fields of a task run.
const (
	ColTasks      = "tasks"
	ColExecutions = "executions"
)

// RunColumns are the result fields of a task run.
var RunColumns = []string{ColTasks, ColExecutions}

// RunItem is the single WorkItem of a task run. The task ARNs are joined with
// spaces since an ARN never contains one.
func RunItem(tasks []string) *workflow.WorkItem {
	return workflow.NewWorkItem("datasync", map[string]string{ColTasks: strings.Join(tasks, " ")})
}

// ExecutionStatus returns a Describer for a task execution.
func ExecutionStatus(api API) workflow.Describer {
	return func(ctx context.Context, arn string) (workflow.Status, error) {
		out, err := api.DescribeTaskExecution(ctx, &datasyncv2.DescribeTaskExecutionInput{TaskExecutionArn: aws.String(arn)})
		if err != nil {
			return "", err
		}
		return workflow.Status(out.Status), nil
	}
}

// RunSteps starts every task and waits until all executions succeed. A
// single execution in ERROR fails the run.
func RunSteps(api API, tasks []string) []workflow.Step {
	return []workflow.Step{
		{
			Name: "run-tasks",
			Action: func(ctx context.Context, item *workflow.WorkItem) (workflow.Handle, error) {
				arns := make([]string, 0, len(tasks))
				for _, task := range tasks {
					out, err := api.StartTaskExecution(ctx, &datasyncv2.StartTaskExecutionInput{TaskArn: aws.String(task)})
					if err != nil {
						// Executions already started keep running; record them so
						// the operator can find them.
						item.SetOutput(ColExecutions, strings.Join(arns, " "))
						return workflow.Handle{}, fmt.Errorf("start %s: %w", task, err)
					}
					arn := aws.ToString(out.TaskExecutionArn)
					log.Infof("started %s as %s", task, arn)
					arns = append(arns, arn)
				}
				item.SetOutput(ColExecutions, strings.Join(arns, " "))
				return workflow.HandleOf(arns...), nil
			},
			Describe:     ExecutionStatus(api),
			Success:      workflow.StatusIn(workflow.Status(types.TaskExecutionStatusSuccess)),
			Failure:      workflow.StatusIn(workflow.Status(types.TaskExecutionStatusError)),
			PollInterval: 5 * time.Second,
			MaxAttempts:  720,
		},
	}
}
