package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Model != "nomic-embed-text" || len(body.Input) != 2 {
			t.Errorf("unexpected request %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"nomic-embed-text","data":[
{"object":"embedding","index":1,"embedding":[0,1,0]},
{"object":"embedding","index":0,"embedding":[1,0,0]}],
"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	defer srv.Close()

	emb := New("", srv.URL+"/v1", "nomic-embed-text", 4)
	vecs, err := emb.EmbedBatch(context.Background(), []string{"hana", "backup"})
	if err != nil {
		t.Fatalf("embed error: %v", err)
	}
	if len(vecs) != 2 || vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Fatalf("unexpected vectors %v", vecs)
	}
	if len(vecs[0]) != 4 {
		t.Fatalf("expected padding to dimension 4, got %d", len(vecs[0]))
	}
}

func TestConvertVector(t *testing.T) {
	if got := convertVector([]float64{1, 2, 3}, 2); len(got) != 2 || got[1] != 2 {
		t.Fatalf("unexpected %v", got)
	}
	if got := convertVector([]float64{1, 2}, 0); len(got) != 2 {
		t.Fatalf("zero dimension should keep input length, got %v", got)
	}
}
