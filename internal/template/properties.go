package template

// CloudFormation resource types rendered for an API graph.
const (
	TypeRole       = "AWS::IAM::Role"
	TypeFunction   = "AWS::Lambda::Function"
	TypePermission = "AWS::Lambda::Permission"
	TypeRestAPI    = "AWS::ApiGateway::RestApi"
	TypeResource   = "AWS::ApiGateway::Resource"
	TypeMethod     = "AWS::ApiGateway::Method"
	TypeAuthorizer = "AWS::ApiGateway::Authorizer"
	TypeDeployment = "AWS::ApiGateway::Deployment"
	TypeStage      = "AWS::ApiGateway::Stage"
)

type roleProps struct {
	AssumeRolePolicyDocument any   `json:"AssumeRolePolicyDocument"`
	ManagedPolicyArns        []any `json:"ManagedPolicyArns,omitempty"`
}

type functionProps struct {
	Description string       `json:"Description,omitempty"`
	Code        functionCode `json:"Code"`
	Handler     string       `json:"Handler"`
	Runtime     string       `json:"Runtime"`
	Role        any          `json:"Role"`
	Timeout     int          `json:"Timeout,omitempty"`
	MemorySize  int          `json:"MemorySize,omitempty"`
	Environment *environment `json:"Environment,omitempty"`
}

type functionCode struct {
	ZipFile string `json:"ZipFile"`
}

type environment struct {
	Variables map[string]string `json:"Variables"`
}

type permissionProps struct {
	Action       string `json:"Action"`
	FunctionName any    `json:"FunctionName"`
	Principal    string `json:"Principal"`
	SourceArn    any    `json:"SourceArn,omitempty"`
}

type restAPIProps struct {
	Name        string `json:"Name"`
	Description string `json:"Description,omitempty"`
}

type resourceProps struct {
	RestApiId any    `json:"RestApiId"`
	ParentId  any    `json:"ParentId"`
	PathPart  string `json:"PathPart"`
}

type methodProps struct {
	RestApiId         any              `json:"RestApiId"`
	ResourceId        any              `json:"ResourceId"`
	HttpMethod        string           `json:"HttpMethod"`
	AuthorizationType string           `json:"AuthorizationType"`
	AuthorizerId      any              `json:"AuthorizerId,omitempty"`
	Integration       integration      `json:"Integration"`
	MethodResponses   []methodResponse `json:"MethodResponses,omitempty"`
}

type integration struct {
	Type                  string                `json:"Type"`
	IntegrationHttpMethod string                `json:"IntegrationHttpMethod,omitempty"`
	Uri                   any                   `json:"Uri,omitempty"`
	PassthroughBehavior   string                `json:"PassthroughBehavior,omitempty"`
	RequestTemplates      map[string]string     `json:"RequestTemplates,omitempty"`
	IntegrationResponses  []integrationResponse `json:"IntegrationResponses,omitempty"`
}

type integrationResponse struct {
	StatusCode         string            `json:"StatusCode"`
	ResponseParameters map[string]string `json:"ResponseParameters,omitempty"`
}

type methodResponse struct {
	StatusCode         string          `json:"StatusCode"`
	ResponseParameters map[string]bool `json:"ResponseParameters,omitempty"`
}

type authorizerProps struct {
	Name           string `json:"Name"`
	Type           string `json:"Type"`
	RestApiId      any    `json:"RestApiId"`
	AuthorizerUri  any    `json:"AuthorizerUri"`
	IdentitySource string `json:"IdentitySource"`
}

type deploymentProps struct {
	RestApiId   any    `json:"RestApiId"`
	Description string `json:"Description,omitempty"`
}

type stageProps struct {
	RestApiId    any    `json:"RestApiId"`
	DeploymentId any    `json:"DeploymentId"`
	StageName    string `json:"StageName"`
}
