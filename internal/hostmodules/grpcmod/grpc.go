// Package grpcmod is the `grpc` host module: a read-only grpc.describe(addr)
// built on gRPC server reflection, listing a target's services and methods
// without proto-file loading or message construction.
package grpcmod

import (
	"context"
	"fmt"
	"time"

	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	reflectpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"

	"github.com/aml-lang/aml/internal/value"
)

func New() *value.Namespace {
	ns := value.NewNamespace("grpc")
	ns.Members["describe"] = &value.Builtin{Name: "grpc.describe", Fn: describe}
	return ns
}

func describe(args []value.Value, kwargs map[string]value.Value) (value.Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("grpc.describe expects a target address")
	}
	addr, ok := args[0].(value.String)
	if !ok {
		return nil, fmt.Errorf("grpc.describe expects a target address")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := grpc.NewClient(string(addr), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc.describe: %v", err)
	}
	defer conn.Close()

	client := grpcreflect.NewClientV1Alpha(ctx, reflectpb.NewServerReflectionClient(conn))
	defer client.Reset()

	services, err := client.ListServices()
	if err != nil {
		return nil, fmt.Errorf("grpc.describe: %v", err)
	}

	out := value.NewDict()
	var svcList []value.Value
	for _, svc := range services {
		sd, err := client.ResolveService(svc)
		if err != nil {
			svcList = append(svcList, value.String(svc))
			continue
		}
		var methods []value.Value
		for _, m := range sd.GetMethods() {
			methods = append(methods, value.String(m.GetName()))
		}
		d := value.NewDict()
		d.Set(value.String("name"), value.String(svc))
		d.Set(value.String("methods"), &value.List{Elements: methods})
		svcList = append(svcList, d)
	}
	out.Set(value.String("services"), &value.List{Elements: svcList})
	return out, nil
}
