package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Ref{LogicalName: "helloWorldApi"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "helloWorldApi"}`, string(data))
}

func TestArn_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Arn("helloWorldFunction"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::GetAtt": ["helloWorldFunction", "Arn"]}`, string(data))
}

func TestLambdaInvocationURI(t *testing.T) {
	data, err := json.Marshal(LambdaInvocationURI("helloWorldFunction"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Sub": "arn:${AWS::Partition}:apigateway:${AWS::Region}:lambda:path/2015-03-31/functions/${helloWorldFunction.Arn}/invocations"}`, string(data))
}

func TestExecuteAPIArn(t *testing.T) {
	sub := ExecuteAPIArn("helloWorldApi", "/*/GET/")
	assert.Equal(t, "arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${helloWorldApi}/*/GET/", sub.String)
}

func TestJoin_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Join{Delimiter: ",", Values: []any{"a", "b"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Join": [",", ["a", "b"]]}`, string(data))
}

func TestAssumeRoleStatement(t *testing.T) {
	doc := NewPolicyDocument(AssumeRoleStatement("lambda.amazonaws.com"))
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"Service": "lambda.amazonaws.com"},
			"Action": "sts:AssumeRole"
		}]
	}`, string(data))
}

func TestServicePrincipal_Multiple(t *testing.T) {
	data, err := json.Marshal(ServicePrincipal{"lambda.amazonaws.com", "apigateway.amazonaws.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Service": ["lambda.amazonaws.com", "apigateway.amazonaws.com"]}`, string(data))
}
