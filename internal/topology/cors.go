package topology

import apistack "github.com/lex00/apistack-go"

// Preflight response header values.
const (
	AllowHeaders     = "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token,X-Amz-User-Agent"
	AllowOrigin      = "*"
	AllowCredentials = "false"
	AllowMethods     = "OPTIONS,GET,PUT,POST,DELETE"
)

// PreflightHeaders returns the fixed headers of every preflight response.
func PreflightHeaders() []Header {
	return []Header{
		{Name: "Access-Control-Allow-Headers", Value: AllowHeaders},
		{Name: "Access-Control-Allow-Origin", Value: AllowOrigin},
		{Name: "Access-Control-Allow-Credentials", Value: AllowCredentials},
		{Name: "Access-Control-Allow-Methods", Value: AllowMethods},
	}
}

// AttachPreflight registers an OPTIONS method on node that answers CORS
// preflight requests with a static 200 response. It returns node.
//
// The node must not already have a preflight; AttachPreflight does not check.
func AttachPreflight(node *Node) *Node {
	node.addMethod(&Method{
		HTTPMethod: apistack.MethodOptions,
		Mock: &MockIntegration{
			StatusCode:      200,
			ResponseHeaders: PreflightHeaders(),
			RequestTemplates: map[string]string{
				"application/json": `{"statusCode": 200}`,
			},
			PassthroughBehavior: "NEVER",
		},
	})
	return node
}
