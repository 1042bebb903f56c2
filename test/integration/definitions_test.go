package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestDefinitionLifecycle(t *testing.T) {
	id := uniqueID(t)
	createDefinition(t, id, "types:\n  - cell: u32[W]\nconsts:\n  - W: 3\n")

	code, body := doJSON(t, "GET", "definitions/"+id, nil)
	if code != http.StatusOK || body["revisionId"] == "" {
		t.Fatalf("get: %d %v", code, body)
	}
	firstRevision := body["revisionId"]

	if got := evaluate(t, map[string]interface{}{"source": "size(cell)", "definition": id}); got != float64(12) {
		t.Errorf("size(cell) = %v, want 12", got)
	}

	code, body = doJSON(t, "PATCH", "definitions/"+id, map[string]string{"sourceContents": "types:\n  - cell: u32[W]\nconsts:\n  - W: 5\n"})
	if code != http.StatusOK || body["revisionId"] == firstRevision {
		t.Fatalf("update: %d %v", code, body)
	}
	if got := evaluate(t, map[string]interface{}{"source": "size(cell)", "definition": id}); got != float64(20) {
		t.Errorf("size(cell) after update = %v, want 20", got)
	}

	code, body = doJSON(t, "PATCH", "definitions/"+id, map[string]string{"sourceContents": "consts:\n  - W: W\n"})
	if code != http.StatusBadRequest || errorKind(body) != "UnresolvedIdentifier" {
		t.Errorf("invalid update: %d %v", code, body)
	}

	code, body = doJSON(t, "GET", "definitions", nil)
	if code != http.StatusOK {
		t.Fatalf("list: %d %v", code, body)
	}
	found := false
	for _, d := range body["definitions"].([]interface{}) {
		if d.(map[string]interface{})["name"] == id {
			found = true
		}
	}
	if !found {
		t.Errorf("%s missing from list", id)
	}
}

func TestDefinitionValidation(t *testing.T) {
	id := uniqueID(t)
	tests := []struct {
		name   string
		source string
		kind   string
	}{
		{"duplicate name", "consts:\n  - A: 1\n  - A: 2\n", ""},
		{"reserved name", "types:\n  - u8: u16\n", ""},
		{"forward reference", "consts:\n  - A: B\n  - B: 1\n", "UnresolvedIdentifier"},
		{"recursive type", "types:\n  - loop: loop[2]\nconsts:\n  - S: size(loop)\n", "UnsizedTypeError"},
		{"bad type", "types:\n  - t: u8[\n", "ParseError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := doJSON(t, "POST", "definitions?definitionId="+id, map[string]string{"sourceContents": tt.source})
			if code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %v", code, body)
			}
			if got := errorKind(body); got != tt.kind {
				t.Errorf("kind = %q, want %q", got, tt.kind)
			}
		})
	}
}

func TestEvaluationHistory(t *testing.T) {
	id := uniqueID(t)
	createDefinition(t, id, "consts:\n  - N: 10\n")

	for _, source := range []string{"N * 2", "N / 0", "N > 5"} {
		doJSON(t, "POST", "definitions/"+id+":evaluate", map[string]string{"source": source})
	}

	code, body := doJSON(t, "GET", "definitions/"+id+"/evaluations", nil)
	if code != http.StatusOK {
		t.Fatalf("list evaluations: %d %v", code, body)
	}
	history := body["evaluations"].([]interface{})
	if len(history) != 3 {
		t.Fatalf("history = %v", history)
	}

	want := []struct {
		result string
		kind   string
	}{
		{"20", "int"},
		{"", ""},
		{"true", "bool"},
	}
	for i, w := range want {
		ev := history[i].(map[string]interface{})
		if !strings.HasPrefix(ev["name"].(string), "definitions/"+id+"/evaluations/") {
			t.Errorf("evaluation %d name = %v", i, ev["name"])
		}
		if w.result == "" {
			e := ev["error"].(map[string]interface{})
			if e["kind"] != "DivisionByZero" {
				t.Errorf("evaluation %d error = %v", i, e)
			}
			continue
		}
		if ev["result"] != w.result || ev["kind"] != w.kind {
			t.Errorf("evaluation %d = %v, want %s (%s)", i, ev, w.result, w.kind)
		}
	}
}

func TestDefinitionBindings(t *testing.T) {
	code, body := doJSON(t, "GET", "definitions/ipv4/bindings", nil)
	if code != http.StatusOK {
		t.Fatalf("bindings: %d %v", code, body)
	}
	byName := map[string]map[string]interface{}{}
	for _, b := range body["bindings"].([]interface{}) {
		info := b.(map[string]interface{})
		byName[info["name"].(string)] = info
	}

	route := byName["route"]
	if route["kind"] != "type" || route["type"] != "addr[2]" {
		t.Errorf("route = %v", route)
	}
	if l := route["layout"].(map[string]interface{}); l["size"] != float64(8) || l["len"] != float64(2) {
		t.Errorf("route layout = %v", l)
	}
	if packet := byName["packet"]["layout"].(map[string]interface{}); packet["size"] != nil {
		t.Errorf("packet should be unsized: %v", packet)
	}
	if mtu := byName["MTU"]; mtu["kind"] != "int" || mtu["value"] != float64(1500) {
		t.Errorf("MTU = %v", mtu)
	}
}
