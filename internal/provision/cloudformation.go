package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/ctxlog"
)

// MaxTemplateBody is the largest template accepted inline by CloudFormation.
const MaxTemplateBody = 51200

// DefaultMaxWait bounds how long Provision waits for a stack to settle.
const DefaultMaxWait = 30 * time.Minute

// CloudFormationAPI is the subset of the CloudFormation client used here.
type CloudFormationAPI interface {
	cloudformation.DescribeStacksAPIClient
	CreateStack(ctx context.Context, params *cloudformation.CreateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.CreateStackOutput, error)
	UpdateStack(ctx context.Context, params *cloudformation.UpdateStackInput, optFns ...func(*cloudformation.Options)) (*cloudformation.UpdateStackOutput, error)
}

// CloudFormation creates or updates a stack and waits for it to settle.
type CloudFormation struct {
	client  CloudFormationAPI
	MaxWait time.Duration
	// Wait disables waiting when false.
	Wait bool
}

// NewCloudFormation loads the default AWS configuration, overriding the
// region when region is set.
func NewCloudFormation(ctx context.Context, region string) (*CloudFormation, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewCloudFormationWithClient(cloudformation.NewFromConfig(cfg)), nil
}

// NewCloudFormationWithClient wraps an existing client.
func NewCloudFormationWithClient(client CloudFormationAPI) *CloudFormation {
	return &CloudFormation{client: client, MaxWait: DefaultMaxWait, Wait: true}
}

// Provision creates the stack when it does not exist and updates it
// otherwise. An update with no changes is reported as ActionUnchanged.
func (c *CloudFormation) Provision(ctx context.Context, stack string, t *apistack.Template) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	body, err := Encode(t, "json")
	if err != nil {
		return nil, err
	}
	if len(body) > MaxTemplateBody {
		return nil, fmt.Errorf("template is %d bytes, over the %d byte inline limit", len(body), MaxTemplateBody)
	}

	exists, err := c.stackExists(ctx, stack)
	if err != nil {
		return nil, err
	}

	capabilities := []types.Capability{types.CapabilityCapabilityIam}
	result := &Result{Stack: stack}

	if !exists {
		logger.Info("creating stack", "stack", stack)
		_, err := c.client.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(stack),
			TemplateBody: aws.String(string(body)),
			Capabilities: capabilities,
		})
		if err != nil {
			return nil, fmt.Errorf("creating stack %s: %w", stack, err)
		}
		result.Action = ActionCreated
		if c.Wait {
			waiter := cloudformation.NewStackCreateCompleteWaiter(c.client)
			if err := waiter.Wait(ctx, describe(stack), c.maxWait()); err != nil {
				return nil, fmt.Errorf("waiting for stack %s: %w", stack, err)
			}
		}
	} else {
		logger.Info("updating stack", "stack", stack)
		_, err := c.client.UpdateStack(ctx, &cloudformation.UpdateStackInput{
			StackName:    aws.String(stack),
			TemplateBody: aws.String(string(body)),
			Capabilities: capabilities,
		})
		switch {
		case isNoUpdates(err):
			logger.Info("stack is up to date", "stack", stack)
			result.Action = ActionUnchanged
		case err != nil:
			return nil, fmt.Errorf("updating stack %s: %w", stack, err)
		default:
			result.Action = ActionUpdated
			if c.Wait {
				waiter := cloudformation.NewStackUpdateCompleteWaiter(c.client)
				if err := waiter.Wait(ctx, describe(stack), c.maxWait()); err != nil {
					return nil, fmt.Errorf("waiting for stack %s: %w", stack, err)
				}
			}
		}
	}

	outputs, err := c.outputs(ctx, stack)
	if err != nil {
		return nil, err
	}
	result.Outputs = outputs
	return result, nil
}

func (c *CloudFormation) stackExists(ctx context.Context, stack string) (bool, error) {
	out, err := c.client.DescribeStacks(ctx, describe(stack))
	if isStackMissing(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("describing stack %s: %w", stack, err)
	}
	for _, s := range out.Stacks {
		// A deleted stack can be recreated under the same name.
		if s.StackStatus != types.StackStatusDeleteComplete {
			return true, nil
		}
	}
	return false, nil
}

func (c *CloudFormation) outputs(ctx context.Context, stack string) (map[string]string, error) {
	out, err := c.client.DescribeStacks(ctx, describe(stack))
	if err != nil {
		return nil, fmt.Errorf("describing stack %s: %w", stack, err)
	}
	if len(out.Stacks) == 0 {
		return nil, nil
	}
	outputs := make(map[string]string, len(out.Stacks[0].Outputs))
	for _, o := range out.Stacks[0].Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs, nil
}

func (c *CloudFormation) maxWait() time.Duration {
	if c.MaxWait <= 0 {
		return DefaultMaxWait
	}
	return c.MaxWait
}

func describe(stack string) *cloudformation.DescribeStacksInput {
	return &cloudformation.DescribeStacksInput{StackName: aws.String(stack)}
}

func isStackMissing(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}

func isNoUpdates(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}
