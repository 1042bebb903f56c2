package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcapi "github.com/lemonberrylabs/nil-layout/pkg/api/grpc"
)

func newEvaluatorClient(t *testing.T) *grpcapi.EvaluatorClient {
	t.Helper()
	if grpcEndpoint == "" {
		t.Skip("NIL_GRPC_ENDPOINT not set")
	}
	conn, err := grpc.NewClient(grpcEndpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return grpcapi.NewEvaluatorClient(conn)
}

func TestGRPCSharesDefinitionsWithREST(t *testing.T) {
	client := newEvaluatorClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id := uniqueID(t)
	createDefinition(t, id, "types:\n  - frame: u64[SLOTS]\nconsts:\n  - SLOTS: 6\n")

	req, _ := structpb.NewStruct(map[string]interface{}{"source": "size(frame)", "definition": id})
	resp, err := client.Evaluate(ctx, req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := resp.GetFields()["value"].GetNumberValue(); got != 48 {
		t.Errorf("size(frame) = %v, want 48", got)
	}

	// An update through REST is visible to the next gRPC call.
	code, body := doJSON(t, "PATCH", "definitions/"+id, map[string]string{"sourceContents": "types:\n  - frame: u64[SLOTS]\nconsts:\n  - SLOTS: 2\n"})
	if code != http.StatusOK {
		t.Fatalf("update: %d %v", code, body)
	}
	resp, err = client.Evaluate(ctx, req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if got := resp.GetFields()["value"].GetNumberValue(); got != 16 {
		t.Errorf("size(frame) after update = %v, want 16", got)
	}

	layoutReq, _ := structpb.NewStruct(map[string]interface{}{"source": "frame[3]", "definition": id})
	layout, err := client.Layout(ctx, layoutReq)
	if err != nil {
		t.Fatalf("Layout: %v", err)
	}
	if got := layout.AsMap(); got["size"] != float64(48) || got["align"] != float64(8) || got["len"] != float64(3) {
		t.Errorf("layout = %v", got)
	}
}

func TestGRPCErrors(t *testing.T) {
	client := newEvaluatorClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, _ := structpb.NewStruct(map[string]interface{}{"source": "1", "definition": "does-not-exist"})
	if _, err := client.Evaluate(ctx, req); status.Code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}

	req, _ = structpb.NewStruct(map[string]interface{}{"source": "if true then 1"})
	_, err := client.Evaluate(ctx, req)
	kind, pos, ok := grpcapi.ErrorKind(err)
	if !ok || kind != "ParseError" || pos != 14 {
		t.Errorf("got %q at %d (%v), want ParseError at 14", kind, pos, err)
	}
}
