package template

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/topology"
	"github.com/lex00/apistack-go/intrinsics"
)

func route(name, path string, m apistack.Method) apistack.CompiledHandler {
	return apistack.NewCompiledRoute(apistack.RouteDescriptor{
		HandlerDescriptor: apistack.HandlerDescriptor{
			Name:        name,
			Timeout:     10,
			Environment: map[string]string{"STAGE": "prod"},
		},
		APIPath: path,
		Method:  m,
	}, "exports.handle=async()=>({statusCode:200});")
}

func authorizer() *apistack.CompiledHandler {
	h := apistack.NewCompiledHandler(apistack.HandlerDescriptor{Name: "tokenAuth", FunctionName: "authorize"}, "exports.authorize=()=>{};")
	return &h
}

// deploymentID returns the logical id of the single deployment of apiID.
func deploymentID(t *testing.T, tmpl *apistack.Template, apiID string) string {
	t.Helper()
	var found []string
	for id, res := range tmpl.Resources {
		if res.Type == TypeDeployment && strings.HasPrefix(id, apiID+"Deployment") {
			found = append(found, id)
		}
	}
	require.Len(t, found, 1, "deployments of %s", apiID)
	return found[0]
}

func TestFromGraph_SingleRootRoute(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{route("helloWorld", "", apistack.MethodGet)}, nil, topology.Options{})

	tmpl, err := FromGraph(g, Options{Description: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Equal(t, "hello", tmpl.Description)

	deployment := deploymentID(t, tmpl, "helloWorldApi")
	assert.Len(t, strings.TrimPrefix(deployment, "helloWorldApiDeployment"), 12)

	types := map[string]string{}
	for id, res := range tmpl.Resources {
		types[id] = res.Type
	}
	assert.Equal(t, map[string]string{
		"helloWorldFunctionRole":           TypeRole,
		"helloWorldFunction":               TypeFunction,
		"helloWorldApi":                    TypeRestAPI,
		"helloWorldApiOptionsMethod":       TypeMethod,
		"helloWorldApiGetMethod":           TypeMethod,
		"helloWorldApiGetMethodPermission": TypePermission,
		deployment:                         TypeDeployment,
		"helloWorldApiStage":               TypeStage,
	}, types)

	fn := tmpl.Resources["helloWorldFunction"].Properties
	assert.Equal(t, "index.handle", fn["Handler"])
	assert.Equal(t, topology.DefaultRuntime, fn["Runtime"])
	assert.Equal(t, 10, fn["Timeout"])
	assert.Equal(t, map[string]any{"ZipFile": "exports.handle=async()=>({statusCode:200});"}, fn["Code"])
	assert.Equal(t, map[string]any{"Variables": map[string]any{"STAGE": "prod"}}, fn["Environment"])
	assert.True(t, strings.HasPrefix(fn["Description"].(string), "helloWorld (blake3:"))
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"helloWorldFunctionRole", "Arn"}}, fn["Role"])
	assert.NotContains(t, fn, "MemorySize")

	get := tmpl.Resources["helloWorldApiGetMethod"].Properties
	assert.Equal(t, "GET", get["HttpMethod"])
	assert.Equal(t, "NONE", get["AuthorizationType"])
	assert.NotContains(t, get, "AuthorizerId")
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"helloWorldApi", "RootResourceId"}}, get["ResourceId"])
	integ := get["Integration"].(map[string]any)
	assert.Equal(t, "AWS_PROXY", integ["Type"])
	assert.Equal(t, "POST", integ["IntegrationHttpMethod"])

	assert.Equal(t, []string{"helloWorldApiOptionsMethod", "helloWorldApiGetMethod"},
		tmpl.Resources[deployment].DependsOn)
	stage := tmpl.Resources["helloWorldApiStage"].Properties
	assert.Equal(t, "prod", stage["StageName"])
	assert.Equal(t, map[string]any{"Ref": deployment}, stage["DeploymentId"])
	assert.Contains(t, tmpl.Outputs, "helloWorldApiEndpoint")
}

func TestFromGraph_PreflightMock(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{route("listUsers", "users", apistack.MethodGet)}, nil, topology.Options{})

	tmpl, err := FromGraph(g, Options{Stage: "dev"})
	require.NoError(t, err)

	opts := tmpl.Resources["listUsersApiResourceUsersOptionsMethod"].Properties
	assert.Equal(t, "OPTIONS", opts["HttpMethod"])
	assert.Equal(t, map[string]any{"Ref": "listUsersApiResourceUsers"}, opts["ResourceId"])

	integ := opts["Integration"].(map[string]any)
	assert.Equal(t, "MOCK", integ["Type"])
	assert.Equal(t, "NEVER", integ["PassthroughBehavior"])
	assert.Equal(t, map[string]any{"application/json": `{"statusCode": 200}`}, integ["RequestTemplates"])

	responses := integ["IntegrationResponses"].([]any)
	require.Len(t, responses, 1)
	resp := responses[0].(map[string]any)
	assert.Equal(t, "200", resp["StatusCode"])
	assert.Equal(t, map[string]any{
		"method.response.header.Access-Control-Allow-Headers":     "'Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token,X-Amz-User-Agent'",
		"method.response.header.Access-Control-Allow-Origin":      "'*'",
		"method.response.header.Access-Control-Allow-Credentials": "'false'",
		"method.response.header.Access-Control-Allow-Methods":     "'OPTIONS,GET,PUT,POST,DELETE'",
	}, resp["ResponseParameters"])

	methodResponses := opts["MethodResponses"].([]any)
	require.Len(t, methodResponses, 1)
	params := methodResponses[0].(map[string]any)["ResponseParameters"].(map[string]any)
	assert.Len(t, params, 4)
	assert.Equal(t, true, params["method.response.header.Access-Control-Allow-Origin"])

	res := tmpl.Resources["listUsersApiResourceUsers"].Properties
	assert.Equal(t, "users", res["PathPart"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{"listUsersApi", "RootResourceId"}}, res["ParentId"])

	perm := tmpl.Resources["listUsersApiResourceUsersGetMethodPermission"].Properties
	assert.Equal(t, map[string]any{
		"Fn::Sub": "arn:${AWS::Partition}:execute-api:${AWS::Region}:${AWS::AccountId}:${listUsersApi}/*/GET/users",
	}, perm["SourceArn"])
	assert.Equal(t, "dev", tmpl.Resources["listUsersApiStage"].Properties["StageName"])
}

func TestFromGraph_SharedAuthorizer(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{
		route("listUsers", "users", apistack.MethodGet),
		route("createUser", "users", apistack.MethodPost),
	}, authorizer(), topology.Options{})

	tmpl, err := FromGraph(g, Options{})
	require.NoError(t, err)

	// One function and role for the authorizer, however many APIs use it.
	assert.Contains(t, tmpl.Resources, "tokenAuthFunction")
	assert.Contains(t, tmpl.Resources, "tokenAuthFunctionRole")

	for _, api := range []string{"listUsersApi", "createUserApi"} {
		authID := api + "TokenAuthAuthorizer"
		auth, ok := tmpl.Resources[authID]
		require.True(t, ok, authID)
		assert.Equal(t, TypeAuthorizer, auth.Type)
		assert.Equal(t, "TOKEN", auth.Properties["Type"])
		assert.Equal(t, "method.request.header.Authorization", auth.Properties["IdentitySource"])
		assert.Equal(t, map[string]any{
			"Fn::Sub": "arn:${AWS::Partition}:apigateway:${AWS::Region}:lambda:path/2015-03-31/functions/${tokenAuthFunction.Arn}/invocations",
		}, auth.Properties["AuthorizerUri"])
		assert.Contains(t, tmpl.Resources, authID+"Permission")
	}

	get := tmpl.Resources["listUsersApiResourceUsersGetMethod"].Properties
	assert.Equal(t, "CUSTOM", get["AuthorizationType"])
	assert.Equal(t, map[string]any{"Ref": "listUsersApiTokenAuthAuthorizer"}, get["AuthorizerId"])

	preflight := tmpl.Resources["listUsersApiResourceUsersOptionsMethod"].Properties
	assert.Equal(t, "NONE", preflight["AuthorizationType"])
}

func TestFromGraph_DuplicateNames(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{
		route("dup", "", apistack.MethodGet),
		route("dup", "", apistack.MethodPost),
	}, nil, topology.Options{})

	_, err := FromGraph(g, Options{})

	var collision *topology.AssemblyCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "dupFunctionRole", collision.ID)
}

func TestFromGraph_Deterministic(t *testing.T) {
	build := func() []byte {
		g := topology.Assemble([]apistack.CompiledHandler{
			route("a", "x/y", apistack.MethodPut),
			route("b", "", apistack.MethodDelete),
		}, authorizer(), topology.Options{})
		tmpl, err := FromGraph(g, Options{})
		require.NoError(t, err)
		data, err := ToJSON(tmpl)
		require.NoError(t, err)
		return data
	}

	assert.Equal(t, string(build()), string(build()))
}

func TestFromGraph_DeploymentFollowsRoutes(t *testing.T) {
	render := func(auth *apistack.CompiledHandler, handlers ...apistack.CompiledHandler) string {
		g := topology.Assemble(handlers, auth, topology.Options{})
		tmpl, err := FromGraph(g, Options{})
		require.NoError(t, err)
		return deploymentID(t, tmpl, "aApi")
	}

	base := render(nil, route("a", "items", apistack.MethodGet))
	assert.Equal(t, base, render(nil, route("a", "items", apistack.MethodGet)))

	changed := apistack.NewCompiledRoute(apistack.RouteDescriptor{
		HandlerDescriptor: apistack.HandlerDescriptor{Name: "a", Timeout: 30},
		APIPath:           "items",
		Method:            apistack.MethodGet,
	}, "exports.handle=async()=>({statusCode:204});")
	assert.Equal(t, base, render(nil, changed), "handler code and settings do not touch the API")

	assert.NotEqual(t, base, render(nil, route("a", "items", apistack.MethodPost)), "method change")
	assert.NotEqual(t, base, render(nil, route("a", "things", apistack.MethodGet)), "path change")
	assert.NotEqual(t, base, render(authorizer(), route("a", "items", apistack.MethodGet)), "authorizer added")
}

func TestBuilder_DanglingReference(t *testing.T) {
	b := NewBuilder("")
	require.NoError(t, b.Add("Fn", TypeFunction, functionProps{
		Role: intrinsics.Arn("MissingRole"),
	}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MissingRole")
}

func TestBuilder_DanglingOutputReference(t *testing.T) {
	b := NewBuilder("")
	require.NoError(t, b.AddOutput("Url", "", intrinsics.Ref{LogicalName: "Nope"}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
}

func TestBuilder_Cycle(t *testing.T) {
	b := NewBuilder("")
	require.NoError(t, b.Add("A", TypeResource, resourceProps{ParentId: intrinsics.Ref{LogicalName: "B"}}))
	require.NoError(t, b.Add("B", TypeResource, resourceProps{ParentId: intrinsics.Ref{LogicalName: "A"}}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
}

func TestOrder(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{route("helloWorld", "", apistack.MethodGet)}, nil, topology.Options{})
	tmpl, err := FromGraph(g, Options{})
	require.NoError(t, err)

	order, err := Order(tmpl)
	require.NoError(t, err)

	pos := map[string]int{}
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["helloWorldFunctionRole"], pos["helloWorldFunction"])
	assert.Less(t, pos["helloWorldFunction"], pos["helloWorldApiGetMethod"])
	deployment := deploymentID(t, tmpl, "helloWorldApi")
	assert.Less(t, pos["helloWorldApiGetMethod"], pos[deployment])
	assert.Less(t, pos[deployment], pos["helloWorldApiStage"])
}

func TestReferences(t *testing.T) {
	refs := references(map[string]any{
		"A": map[string]any{"Ref": "Api"},
		"B": map[string]any{"Ref": "AWS::Region"},
		"C": map[string]any{"Fn::GetAtt": []any{"Fn", "Arn"}},
		"D": map[string]any{"Fn::Sub": "${Fn.Arn}/${AWS::Partition}/${!Literal}/${Api}"},
		"E": []any{map[string]any{"Fn::Join": []any{"", []any{map[string]any{"Ref": "Stage"}}}}},
	})

	assert.ElementsMatch(t, []string{"Api", "Fn", "Stage"}, refs)
}

func TestToJSONAndYAML(t *testing.T) {
	g := topology.Assemble([]apistack.CompiledHandler{route("helloWorld", "", apistack.MethodGet)}, nil, topology.Options{})
	tmpl, err := FromGraph(g, Options{})
	require.NoError(t, err)

	data, err := ToJSON(tmpl)
	require.NoError(t, err)
	var fromJSON map[string]any
	require.NoError(t, json.Unmarshal(data, &fromJSON))
	assert.Equal(t, "2010-09-09", fromJSON["AWSTemplateFormatVersion"])

	data, err = ToYAML(tmpl)
	require.NoError(t, err)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))
	assert.Contains(t, fromYAML["Resources"], "helloWorldFunction")
}
