package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apistack "github.com/lex00/apistack-go"
)

const yamlManifest = `
stack: users
description: User API
runtime: nodejs20.x
authorizer:
  name: tokenAuth
  source: src/auth.ts
  function: authorize
handlers:
  - name: listUsers
    source: src/users.ts
    method: get
    path: users
    timeout: 10
    environment:
      TABLE: users
  - name: createUser
    source: src/users.ts
    function: create
    method: POST
    path: users
`

const jsonManifest = `{
  "stack": "hello",
  "handlers": [
    {"name": "helloWorld", "source": "src/hello.ts", "method": "GET"}
  ]
}`

const hclManifest = `
stack = "users"
stage = "dev"

authorizer "tokenAuth" {
  source   = "src/auth.ts"
  function = "authorize"
}

handler "listUsers" {
  source      = "src/users.ts"
  method      = "get"
  path        = "users"
  memory      = 256
  environment = { TABLE = "users" }
}

handler "deleteUser" {
  source = "src/users.ts"
  method = "DELETE"
  path   = "users/{id}"
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	m, err := Load(writeFile(t, dir, "apistack.yaml", yamlManifest))
	require.NoError(t, err)

	assert.Equal(t, "users", m.Stack)
	assert.Equal(t, "User API", m.Description)
	assert.Equal(t, dir, m.Dir)

	require.NotNil(t, m.Authorizer)
	assert.Equal(t, "tokenAuth", m.Authorizer.Name)
	assert.Equal(t, "authorize", m.Authorizer.EntrySymbol())

	require.Len(t, m.Handlers, 2)
	assert.Equal(t, apistack.MethodGet, m.Handlers[0].Method, "methods are normalized")
	assert.Equal(t, "users", m.Handlers[0].APIPath)
	assert.Equal(t, 10, m.Handlers[0].Timeout)
	assert.Equal(t, map[string]string{"TABLE": "users"}, m.Handlers[0].Environment)
	assert.Equal(t, "create", m.Handlers[1].EntrySymbol())

	assert.Equal(t, []string{"tokenAuth", "listUsers", "createUser"}, m.Names())
	assert.Equal(t, []string{
		filepath.Join(dir, "src/auth.ts"),
		filepath.Join(dir, "src/users.ts"),
		filepath.Join(dir, "src/users.ts"),
	}, m.Sources())
}

func TestLoad_JSON(t *testing.T) {
	m, err := Load(writeFile(t, t.TempDir(), "apistack.json", jsonManifest))
	require.NoError(t, err)

	assert.Nil(t, m.Authorizer)
	require.Len(t, m.Handlers, 1)
	assert.Equal(t, "helloWorld", m.Handlers[0].Name)
	assert.Equal(t, "", m.Handlers[0].APIPath)
	assert.Equal(t, "handle", m.Handlers[0].EntrySymbol())
}

func TestLoad_HCL(t *testing.T) {
	m, err := Load(writeFile(t, t.TempDir(), "apistack.hcl", hclManifest))
	require.NoError(t, err)

	assert.Equal(t, "users", m.Stack)
	assert.Equal(t, "dev", m.Stage)
	require.NotNil(t, m.Authorizer)
	assert.Equal(t, "tokenAuth", m.Authorizer.Name)
	assert.Equal(t, "src/auth.ts", m.Authorizer.SourcePath)

	require.Len(t, m.Handlers, 2)
	assert.Equal(t, "listUsers", m.Handlers[0].Name)
	assert.Equal(t, apistack.MethodGet, m.Handlers[0].Method)
	assert.Equal(t, 256, m.Handlers[0].MemorySize)
	assert.Equal(t, map[string]string{"TABLE": "users"}, m.Handlers[0].Environment)
	assert.Equal(t, "users/{id}", m.Handlers[1].APIPath)
	assert.Equal(t, apistack.MethodDelete, m.Handlers[1].Method)
}

func TestParse_HCLRejectsTwoAuthorizers(t *testing.T) {
	src := `
authorizer "a" { source = "a.ts" }
authorizer "b" { source = "b.ts" }
handler "h" {
  source = "h.ts"
  method = "GET"
}
`
	_, err := Parse([]byte(src), "apistack.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most one authorizer")
}

func TestParse_HCLAuthorizerRejectsRouteAttributes(t *testing.T) {
	for _, attr := range []string{`method = "GET"`, `path = "auth"`} {
		src := `
authorizer "tokenAuth" {
  source = "auth.ts"
  ` + attr + `
}
handler "h" {
  source = "h.ts"
  method = "GET"
}
`
		_, err := Parse([]byte(src), "apistack.hcl")
		require.Error(t, err, attr)
		assert.Contains(t, err.Error(), "failed to decode HCL file", attr)
		assert.Contains(t, err.Error(), "Unsupported argument", attr)
	}
}

func TestParse_HCLSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`handler "h" {`), "apistack.hcl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse HCL file")
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("handlers: []\nbogus: true\n"), "apistack.yaml")
	require.Error(t, err)

	_, err = Parse([]byte(`{"handlers": [], "bogus": true}`), "apistack.json")
	require.Error(t, err)
}

func TestParse_UnsupportedExtension(t *testing.T) {
	_, err := Parse([]byte(""), "apistack.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported manifest format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       Manifest
		problem string
	}{
		{
			name:    "no handlers",
			m:       Manifest{},
			problem: "no handlers declared",
		},
		{
			name: "bad name",
			m: Manifest{Handlers: []apistack.RouteDescriptor{{
				HandlerDescriptor: apistack.HandlerDescriptor{Name: "hello-world", SourcePath: "a.ts"},
				Method:            apistack.MethodGet,
			}}},
			problem: `name "hello-world"`,
		},
		{
			name: "missing source",
			m: Manifest{Handlers: []apistack.RouteDescriptor{{
				HandlerDescriptor: apistack.HandlerDescriptor{Name: "a"},
				Method:            apistack.MethodGet,
			}}},
			problem: "source is required",
		},
		{
			name: "bad method",
			m: Manifest{Handlers: []apistack.RouteDescriptor{{
				HandlerDescriptor: apistack.HandlerDescriptor{Name: "a", SourcePath: "a.ts"},
				Method:            "OPTIONS",
			}}},
			problem: "unsupported method",
		},
		{
			name: "empty path segment",
			m: Manifest{Handlers: []apistack.RouteDescriptor{{
				HandlerDescriptor: apistack.HandlerDescriptor{Name: "a", SourcePath: "a.ts"},
				APIPath:           "users//x",
				Method:            apistack.MethodGet,
			}}},
			problem: "empty segment",
		},
		{
			name: "bad authorizer",
			m: Manifest{
				Authorizer: &apistack.HandlerDescriptor{Name: "auth"},
				Handlers: []apistack.RouteDescriptor{{
					HandlerDescriptor: apistack.HandlerDescriptor{Name: "a", SourcePath: "a.ts"},
					Method:            apistack.MethodGet,
				}},
			},
			problem: "authorizer: source is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Error(), tt.problem)
		})
	}
}

func TestLoad_ValidationErrorNamesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "apistack.yaml", "handlers: []\n")

	_, err := Load(path)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, path, verr.File)
	assert.Contains(t, err.Error(), path)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()

	_, err := Find(dir)
	require.ErrorIs(t, err, ErrNotFound)

	writeFile(t, dir, "apistack.hcl", hclManifest)
	writeFile(t, dir, "apistack.yml", yamlManifest)

	path, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "apistack.yml"), path)
}

func TestLoad_Examples(t *testing.T) {
	m, err := Load(filepath.Join("..", "..", "examples", "hello-api", "apistack.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "hello-api", m.Stack)
	assert.Equal(t, []string{"helloWorld"}, m.Names())

	m, err = Load(filepath.Join("..", "..", "examples", "users-hcl", "apistack.hcl"))
	require.NoError(t, err)
	assert.Equal(t, "users-api", m.Stack)
	assert.Equal(t, []string{"tokenAuth", "listUsers", "createUser"}, m.Names())
	assert.Equal(t, apistack.MethodPost, m.Handlers[1].Method)
	assert.Equal(t, "create", m.Handlers[1].EntrySymbol())
	assert.Equal(t, map[string]string{"TABLE_NAME": "users"}, m.Handlers[1].Environment)

	for _, src := range m.Sources() {
		assert.FileExists(t, src)
	}
}
