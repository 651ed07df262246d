// Package intrinsics provides the CloudFormation intrinsic functions used when
// rendering API templates.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{LogicalName: "helloWorldApi"}              → {"Ref": "helloWorldApi"}
//	GetAtt{LogicalName: "helloWorldFunction", ...} → {"Fn::GetAtt": [...]}
//	Sub{String: "${AWS::Region}"}                  → {"Fn::Sub": "${AWS::Region}"}
package intrinsics

import (
	"fmt"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join
)

// Arn returns Fn::GetAtt for the Arn attribute of logicalName.
func Arn(logicalName string) GetAtt {
	return GetAtt{LogicalName: logicalName, Attribute: "Arn"}
}

// LambdaInvocationURI returns the API Gateway integration URI that invokes
// the function logicalName.
func LambdaInvocationURI(logicalName string) Sub {
	return Sub{String: fmt.Sprintf(
		"arn:${AWS::Partition}:apigateway:${AWS::Region}:lambda:path/2015-03-31/functions/${%s.Arn}/invocations",
		logicalName,
	)}
}

// ExecuteAPIArn returns the execute-api ARN of the REST API restAPI followed by
// suffix, e.g. "/*/GET/users" or "/authorizers/${tokenAuthorizer}".
func ExecuteAPIArn(restAPI, suffix string) Sub {
	return Sub{String: fmt.Sprintf(
		"arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${%s}%s",
		restAPI, suffix,
	)}
}

// ManagedPolicyArn returns the ARN of the AWS managed policy at path, e.g.
// "service-role/AWSLambdaBasicExecutionRole".
func ManagedPolicyArn(path string) Sub {
	return Sub{String: "arn:${AWS::Partition}:iam::aws:policy/" + path}
}
