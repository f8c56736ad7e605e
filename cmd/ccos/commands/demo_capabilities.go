package commands

import (
	"fmt"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

// registerDemoCapabilities registers a handful of trivial in-process
// capabilities so `run-plan`/`resume-from` have something to dispatch
// against out of the box, the same role the teacher's cmd/demo/main.go
// stubPlanner plays for its own runtime demo. Real capability providers
// (HTTP, MCP, filesystem, LLM inference) are external collaborators per
// spec.md §1 and are never implemented by the core or this CLI.
func registerDemoCapabilities(reg *capability.Registry) error {
	if err := reg.Register(capability.Manifest{
		ID:       "ccos.echo",
		Kind:     capability.KindPrimitive,
		Provider: echoProvider{},
	}); err != nil {
		return err
	}
	if err := reg.Register(capability.Manifest{
		ID:       "ccos.math.add",
		Kind:     capability.KindPrimitive,
		Provider: mathAddProvider{},
	}); err != nil {
		return err
	}
	return nil
}

// echoProvider returns its first argument unchanged.
type echoProvider struct{}

func (echoProvider) Execute(args []value.Value, _ *value.Map) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), nil
	}
	return args[0], nil
}

func (echoProvider) Health() error { return nil }

// mathAddProvider implements :ccos.math.add, spec.md §8's Scenario A
// capability ("Host capability :ccos.math.add returns 5 for args [2 3]").
type mathAddProvider struct{}

func (mathAddProvider) Execute(args []value.Value, _ *value.Map) (value.Value, error) {
	var sum int64
	var fsum float64
	isFloat := false
	for _, a := range args {
		switch a.Kind() {
		case value.KindInt:
			sum += a.Int()
			fsum += float64(a.Int())
		case value.KindFloat:
			isFloat = true
			fsum += a.Float()
		default:
			return value.Value{}, fmt.Errorf("ccos.math.add: non-numeric argument %s", a.Kind())
		}
	}
	if isFloat {
		return value.Float(fsum), nil
	}
	return value.Int(sum), nil
}

func (mathAddProvider) Health() error { return nil }
