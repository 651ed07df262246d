// Package schema checks rendered templates against the property schemas of
// the resource types an API stack is built from. It runs offline and is
// meant as a fast first pass before cfn-lint.
package schema

import (
	"fmt"
	"sort"
	"strings"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/template"
)

// Options configures schema validation.
type Options struct {
	// Strict reports properties the schema does not know about.
	Strict bool
}

// Issue is one schema finding.
type Issue struct {
	Resource string
	Property string
	Message  string
}

func (i Issue) String() string {
	if i.Property == "" {
		return fmt.Sprintf("%s: %s", i.Resource, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.Resource, i.Property, i.Message)
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

// ValidateTemplate validates every resource of t. Findings are sorted by
// resource and property.
func ValidateTemplate(t *apistack.Template, opts Options) *Result {
	result := &Result{Valid: true}

	for name, resource := range t.Resources {
		errors, warnings := validateResource(name, resource, opts)
		result.Errors = append(result.Errors, errors...)
		result.Warnings = append(result.Warnings, warnings...)
	}

	sortIssues(result.Errors)
	sortIssues(result.Warnings)
	result.Valid = len(result.Errors) == 0

	return result
}

func validateResource(name string, resource apistack.ResourceDef, opts Options) ([]Issue, []Issue) {
	var errors, warnings []Issue

	if !isValidResourceType(resource.Type) {
		errors = append(errors, Issue{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("invalid resource type format: %s", resource.Type),
		})
		return errors, warnings
	}

	schema, ok := resourceSchemas[resource.Type]
	if !ok {
		warnings = append(warnings, Issue{
			Resource: name,
			Property: "Type",
			Message:  fmt.Sprintf("unknown resource type: %s (schema not available for validation)", resource.Type),
		})
		return errors, warnings
	}

	for _, required := range schema.Required {
		if _, exists := resource.Properties[required]; !exists {
			errors = append(errors, Issue{
				Resource: name,
				Property: required,
				Message:  fmt.Sprintf("missing required property: %s", required),
			})
		}
	}

	for propName, propValue := range resource.Properties {
		propSchema, ok := schema.Properties[propName]
		if !ok {
			if opts.Strict {
				warnings = append(warnings, Issue{
					Resource: name,
					Property: propName,
					Message:  fmt.Sprintf("unknown property: %s", propName),
				})
			}
			continue
		}

		errors = append(errors, validateProperty(name, propName, propValue, propSchema)...)
	}

	return errors, warnings
}

// isValidResourceType checks for the AWS::Service::Resource or Custom::* form.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	if len(parts) != 3 {
		return false
	}
	return parts[0] == "AWS"
}

func validateProperty(resource, property string, value any, schema PropertySchema) []Issue {
	var errors []Issue

	if !isValidType(value, schema.Type) {
		errors = append(errors, Issue{
			Resource: resource,
			Property: property,
			Message:  fmt.Sprintf("expected type %s", schema.Type),
		})
	}

	if len(schema.AllowedValues) > 0 {
		if strVal, ok := value.(string); ok && !contains(schema.AllowedValues, strVal) {
			errors = append(errors, Issue{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %q not in allowed values: %v", strVal, schema.AllowedValues),
			})
		}
	}

	if schema.Min != 0 || schema.Max != 0 {
		if n, ok := number(value); ok && (n < schema.Min || n > schema.Max) {
			errors = append(errors, Issue{
				Resource: resource,
				Property: property,
				Message:  fmt.Sprintf("value %v out of range [%v, %v]", value, schema.Min, schema.Max),
			})
		}
	}

	return errors
}

// isValidType checks if a value matches the expected type. Intrinsic
// functions satisfy any type.
func isValidType(value any, expectedType string) bool {
	if m, ok := value.(map[string]any); ok {
		for key := range m {
			if strings.HasPrefix(key, "Fn::") || key == "Ref" {
				return true
			}
		}
	}

	switch expectedType {
	case "String":
		_, ok := value.(string)
		return ok
	case "Integer":
		_, ok := number(value)
		return ok
	case "Boolean":
		_, ok := value.(bool)
		return ok
	case "List":
		_, ok := value.([]any)
		return ok
	case "Map":
		_, ok := value.(map[string]any)
		return ok
	case "Json":
		return true
	default:
		return true
	}
}

func number(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

func sortIssues(issues []Issue) {
	sort.Slice(issues, func(i, j int) bool {
		if issues[i].Resource != issues[j].Resource {
			return issues[i].Resource < issues[j].Resource
		}
		return issues[i].Property < issues[j].Property
	})
}

// ResourceSchema defines the schema for a resource type.
type ResourceSchema struct {
	Required   []string
	Properties map[string]PropertySchema
}

// PropertySchema defines the schema for a property.
type PropertySchema struct {
	Type          string
	AllowedValues []string
	// Min and Max bound numeric values when either is set.
	Min, Max float64
}

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH", "HEAD", "ANY"}

var resourceSchemas = map[string]ResourceSchema{
	template.TypeRole: {
		Required: []string{"AssumeRolePolicyDocument"},
		Properties: map[string]PropertySchema{
			"AssumeRolePolicyDocument": {Type: "Json"},
			"ManagedPolicyArns":        {Type: "List"},
			"Policies":                 {Type: "List"},
			"RoleName":                 {Type: "String"},
			"Path":                     {Type: "String"},
		},
	},
	template.TypeFunction: {
		Required: []string{"Code", "Role"},
		Properties: map[string]PropertySchema{
			"Code":        {Type: "Map"},
			"Description": {Type: "String"},
			"Handler":     {Type: "String"},
			"Runtime":     {Type: "String"},
			"Role":        {Type: "String"},
			"Timeout":     {Type: "Integer", Min: 1, Max: 900},
			"MemorySize":  {Type: "Integer", Min: 128, Max: 10240},
			"Environment": {Type: "Map"},
		},
	},
	template.TypePermission: {
		Required: []string{"Action", "FunctionName", "Principal"},
		Properties: map[string]PropertySchema{
			"Action":       {Type: "String"},
			"FunctionName": {Type: "String"},
			"Principal":    {Type: "String"},
			"SourceArn":    {Type: "String"},
		},
	},
	template.TypeRestAPI: {
		Properties: map[string]PropertySchema{
			"Name":        {Type: "String"},
			"Description": {Type: "String"},
		},
	},
	template.TypeResource: {
		Required: []string{"ParentId", "PathPart", "RestApiId"},
		Properties: map[string]PropertySchema{
			"ParentId":  {Type: "String"},
			"PathPart":  {Type: "String"},
			"RestApiId": {Type: "String"},
		},
	},
	template.TypeMethod: {
		Required: []string{"HttpMethod", "ResourceId", "RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":         {Type: "String"},
			"ResourceId":        {Type: "String"},
			"HttpMethod":        {Type: "String", AllowedValues: httpMethods},
			"AuthorizationType": {Type: "String", AllowedValues: []string{"NONE", "AWS_IAM", "CUSTOM", "COGNITO_USER_POOLS"}},
			"AuthorizerId":      {Type: "String"},
			"Integration":       {Type: "Map"},
			"MethodResponses":   {Type: "List"},
		},
	},
	template.TypeAuthorizer: {
		Required: []string{"Name", "RestApiId", "Type"},
		Properties: map[string]PropertySchema{
			"Name":           {Type: "String"},
			"Type":           {Type: "String", AllowedValues: []string{"TOKEN", "REQUEST", "COGNITO_USER_POOLS"}},
			"RestApiId":      {Type: "String"},
			"AuthorizerUri":  {Type: "String"},
			"IdentitySource": {Type: "String"},
		},
	},
	template.TypeDeployment: {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":   {Type: "String"},
			"Description": {Type: "String"},
			"StageName":   {Type: "String"},
		},
	},
	template.TypeStage: {
		Required: []string{"RestApiId"},
		Properties: map[string]PropertySchema{
			"RestApiId":    {Type: "String"},
			"DeploymentId": {Type: "String"},
			"StageName":    {Type: "String"},
		},
	},
}
