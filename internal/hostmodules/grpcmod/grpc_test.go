package grpcmod

import (
	"testing"

	"github.com/aml-lang/aml/internal/value"
)

func TestNamespaceShape(t *testing.T) {
	ns := New()
	if ns.Name != "grpc" {
		t.Errorf("namespace name: got %q", ns.Name)
	}
	if _, ok := ns.Members["describe"].(*value.Builtin); !ok {
		t.Fatal("describe builtin not registered")
	}
}

func TestDescribeValidatesArguments(t *testing.T) {
	fn := New().Members["describe"].(*value.Builtin)
	if _, err := fn.Fn(nil, nil); err == nil {
		t.Error("expected an error for missing address")
	}
	if _, err := fn.Fn([]value.Value{value.Int(1)}, nil); err == nil {
		t.Error("expected an error for a non-string address")
	}
}

func TestDescribeUnreachableTargetFails(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping network-touching test in -short mode")
	}
	fn := New().Members["describe"].(*value.Builtin)
	// Port 1 on loopback is never serving gRPC; the reflection call must
	// surface an error rather than hang past its dial deadline.
	if _, err := fn.Fn([]value.Value{value.String("127.0.0.1:1")}, nil); err == nil {
		t.Error("expected an error for an unreachable target")
	}
}
