package template

import (
	"fmt"
	"testing"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/topology"
)

// BenchmarkFromGraph benchmarks rendering graphs with varying route counts.
func BenchmarkFromGraph(b *testing.B) {
	sizes := []int{1, 10, 50}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("routes_%d", size), func(b *testing.B) {
			g := generateGraph(size)

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := FromGraph(g, Options{}); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkToJSON benchmarks JSON serialization with varying route counts.
func BenchmarkToJSON(b *testing.B) {
	sizes := []int{1, 10, 50}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("routes_%d", size), func(b *testing.B) {
			tmpl, err := FromGraph(generateGraph(size), Options{})
			if err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := ToJSON(tmpl); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func generateGraph(n int) *topology.Graph {
	handlers := make([]apistack.CompiledHandler, 0, n)
	for i := 0; i < n; i++ {
		handlers = append(handlers, apistack.NewCompiledRoute(apistack.RouteDescriptor{
			HandlerDescriptor: apistack.HandlerDescriptor{Name: fmt.Sprintf("route%d", i)},
			APIPath:           fmt.Sprintf("items/%d", i),
			Method:            apistack.MethodGet,
		}, "exports.handle=async()=>({statusCode:200});"))
	}
	auth := apistack.NewCompiledHandler(apistack.HandlerDescriptor{Name: "auth"}, "exports.handle=()=>{};")
	return topology.Assemble(handlers, &auth, topology.Options{})
}
