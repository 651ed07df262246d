package template

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/topology"
	"github.com/lex00/apistack-go/intrinsics"
)

// DefaultStage is the stage name used when Options.Stage is empty.
const DefaultStage = "prod"

const (
	lambdaBasicExecution = "service-role/AWSLambdaBasicExecutionRole"
	tokenIdentitySource  = "method.request.header.Authorization"
)

// Options configures rendering.
type Options struct {
	Description string
	Stage       string
}

// FromGraph renders g as a CloudFormation template.
//
// Each compute unit becomes an execution role and a function with inline code.
// Each API becomes a REST API with its path resources, methods, invoke
// permissions, a deployment, a stage and an Endpoint output. The shared
// authorizer function backs one token authorizer per REST API, since
// authorizers are scoped to a single API.
func FromGraph(g *topology.Graph, opts Options) (*apistack.Template, error) {
	if opts.Stage == "" {
		opts.Stage = DefaultStage
	}

	b := NewBuilder(opts.Description)

	for _, fn := range g.Functions {
		if err := addFunction(b, fn); err != nil {
			return nil, err
		}
	}

	for _, api := range g.APIs {
		if err := addAPI(b, api, g.Authorizer, opts); err != nil {
			return nil, err
		}
	}

	return b.Build()
}

// RoleID returns the logical id of the execution role of fn.
func RoleID(fn *topology.ComputeUnit) string {
	return fn.ID + "Role"
}

// AuthorizerID returns the logical id of auth's authorizer resource in api.
func AuthorizerID(api *topology.API, auth *topology.Authorizer) string {
	return api.ID + capitalize(auth.ID)
}

func addFunction(b *Builder, fn *topology.ComputeUnit) error {
	role := roleProps{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement("lambda.amazonaws.com"),
		),
		ManagedPolicyArns: []any{intrinsics.ManagedPolicyArn(lambdaBasicExecution)},
	}
	if err := b.Add(RoleID(fn), TypeRole, role); err != nil {
		return err
	}

	props := functionProps{
		Description: fmt.Sprintf("%s (blake3:%s)", fn.Name, shortDigest(fn.Digest)),
		Code:        functionCode{ZipFile: fn.Code},
		Handler:     fn.Handler,
		Runtime:     fn.Runtime,
		Role:        intrinsics.Arn(RoleID(fn)),
		Timeout:     fn.Timeout,
		MemorySize:  fn.MemorySize,
	}
	if len(fn.Environment) > 0 {
		props.Environment = &environment{Variables: fn.Environment}
	}
	return b.Add(fn.ID, TypeFunction, props)
}

func addAPI(b *Builder, api *topology.API, auth *topology.Authorizer, opts Options) error {
	restAPI := intrinsics.Ref{LogicalName: api.ID}

	if err := b.Add(api.ID, TypeRestAPI, restAPIProps{
		Name:        api.ID,
		Description: opts.Description,
	}); err != nil {
		return err
	}

	// published collects the ids whose definitions a deployment snapshots.
	var published []string

	if auth != nil {
		if err := addAuthorizer(b, api, auth); err != nil {
			return err
		}
		published = append(published, AuthorizerID(api, auth))
	}

	var methodIDs []string
	var err error
	api.Root.Walk(func(n *topology.Node) {
		if err != nil {
			return
		}
		if !n.IsRoot() {
			err = b.Add(n.ID, TypeResource, resourceProps{
				RestApiId: restAPI,
				ParentId:  resourceRef(api, n.Parent),
				PathPart:  n.PathPart,
			})
			if err != nil {
				return
			}
			published = append(published, n.ID)
		}
		for _, m := range n.Methods {
			if err = addMethod(b, api, n, m); err != nil {
				return
			}
			methodIDs = append(methodIDs, m.ID)
			published = append(published, m.ID)
		}
	})
	if err != nil {
		return err
	}

	digest, err := snapshotDigest(b, published)
	if err != nil {
		return err
	}
	deploymentID := api.ID + "Deployment" + digest
	if err := b.Add(deploymentID, TypeDeployment, deploymentProps{
		RestApiId:   restAPI,
		Description: "Deployment of " + api.ID,
	}, methodIDs...); err != nil {
		return err
	}

	stageID := api.ID + "Stage"
	if err := b.Add(stageID, TypeStage, stageProps{
		RestApiId:    restAPI,
		DeploymentId: intrinsics.Ref{LogicalName: deploymentID},
		StageName:    opts.Stage,
	}); err != nil {
		return err
	}

	return b.AddOutput(api.ID+"Endpoint", "Invoke URL of "+api.ID, intrinsics.Join{
		Delimiter: "",
		Values: []any{
			"https://",
			restAPI,
			".execute-api.",
			intrinsics.AWS_REGION,
			".",
			intrinsics.AWS_URL_SUFFIX,
			"/",
			// Ref on a stage yields its name.
			intrinsics.Ref{LogicalName: stageID},
			"/",
		},
	})
}

func addAuthorizer(b *Builder, api *topology.API, auth *topology.Authorizer) error {
	id := AuthorizerID(api, auth)
	if err := b.Add(id, TypeAuthorizer, authorizerProps{
		Name:           auth.ID,
		Type:           "TOKEN",
		RestApiId:      intrinsics.Ref{LogicalName: api.ID},
		AuthorizerUri:  intrinsics.LambdaInvocationURI(auth.Function.ID),
		IdentitySource: tokenIdentitySource,
	}); err != nil {
		return err
	}

	return b.Add(id+"Permission", TypePermission, permissionProps{
		Action:       "lambda:InvokeFunction",
		FunctionName: intrinsics.Arn(auth.Function.ID),
		Principal:    "apigateway.amazonaws.com",
		SourceArn:    intrinsics.ExecuteAPIArn(api.ID, fmt.Sprintf("/authorizers/${%s}", id)),
	})
}

func addMethod(b *Builder, api *topology.API, n *topology.Node, m *topology.Method) error {
	props := methodProps{
		RestApiId:         intrinsics.Ref{LogicalName: api.ID},
		ResourceId:        resourceRef(api, n),
		HttpMethod:        string(m.HTTPMethod),
		AuthorizationType: "NONE",
	}

	if m.Authorizer != nil {
		props.AuthorizationType = "CUSTOM"
		props.AuthorizerId = intrinsics.Ref{LogicalName: AuthorizerID(api, m.Authorizer)}
	}

	switch {
	case m.Mock != nil:
		props.Integration, props.MethodResponses = mockIntegration(m.Mock)
	case m.Function != nil:
		props.Integration = integration{
			Type:                  "AWS_PROXY",
			IntegrationHttpMethod: "POST",
			Uri:                   intrinsics.LambdaInvocationURI(m.Function.ID),
		}
	default:
		return fmt.Errorf("method %s has no integration", m.ID)
	}

	if err := b.Add(m.ID, TypeMethod, props); err != nil {
		return err
	}

	if m.Function == nil {
		return nil
	}
	return b.Add(m.ID+"Permission", TypePermission, permissionProps{
		Action:       "lambda:InvokeFunction",
		FunctionName: intrinsics.Arn(m.Function.ID),
		Principal:    "apigateway.amazonaws.com",
		SourceArn:    intrinsics.ExecuteAPIArn(api.ID, fmt.Sprintf("/*/%s/%s", m.HTTPMethod, n.Path())),
	})
}

func mockIntegration(mock *topology.MockIntegration) (integration, []methodResponse) {
	status := strconv.Itoa(mock.StatusCode)

	integrationParams := make(map[string]string, len(mock.ResponseHeaders))
	methodParams := make(map[string]bool, len(mock.ResponseHeaders))
	for _, h := range mock.ResponseHeaders {
		key := "method.response.header." + h.Name
		integrationParams[key] = "'" + h.Value + "'"
		methodParams[key] = true
	}

	integ := integration{
		Type:                "MOCK",
		PassthroughBehavior: mock.PassthroughBehavior,
		RequestTemplates:    mock.RequestTemplates,
		IntegrationResponses: []integrationResponse{{
			StatusCode:         status,
			ResponseParameters: integrationParams,
		}},
	}
	responses := []methodResponse{{
		StatusCode:         status,
		ResponseParameters: methodParams,
	}}
	return integ, responses
}

// resourceRef returns the id expression of n: the REST API's root resource
// for a root node, the path resource otherwise.
func resourceRef(api *topology.API, n *topology.Node) any {
	if n.IsRoot() {
		return intrinsics.GetAtt{LogicalName: api.ID, Attribute: "RootResourceId"}
	}
	return intrinsics.Ref{LogicalName: n.ID}
}

// snapshotDigest hashes the definitions of ids. A deployment only captures
// the API as it was when the deployment was created, so its logical id
// carries this digest and any route or authorizer change replaces it.
func snapshotDigest(b *Builder, ids []string) (string, error) {
	h := blake3.New()
	for _, id := range ids {
		res := b.resources[id]
		data, err := json.Marshal(struct {
			ID         string
			Type       string
			Properties map[string]any
		}{id, res.Type, res.Properties})
		if err != nil {
			return "", fmt.Errorf("hashing %s: %w", id, err)
		}
		h.Write(data)
	}
	return shortDigest(hex.EncodeToString(h.Sum(nil))), nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
