package treasuryclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClient_Transfer(t *testing.T) {
	var gotAuth string
	var gotReq TransferRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transfers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode transfer request: %v", err)
		}
		json.NewEncoder(w).Encode(TransferResponse{ID: "trf_1", Status: "pending"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key")
	err := client.Transfer(context.Background(), "alice", 3900, "campaign-1-withdrawal")
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if gotAuth != "Bearer sk_test_key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
	if gotReq.To != "alice" || gotReq.Amount != 3900 || gotReq.Reference != "campaign-1-withdrawal" {
		t.Errorf("unexpected transfer payload: %+v", gotReq)
	}
}

func TestClient_Transfer_TerminalStatusIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TransferResponse{ID: "trf_2", Status: "failed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key")
	err := client.Transfer(context.Background(), "alice", 100, "ref")
	if err == nil {
		t.Fatal("expected error for failed transfer status")
	}
	if !strings.Contains(err.Error(), "failed") {
		t.Errorf("error should mention the terminal status, got %v", err)
	}
}

func TestClient_Transfer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"errors":[{"title":"insufficient_float","detail":"float balance too low"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key")
	err := client.Transfer(context.Background(), "alice", 100, "ref")
	if err == nil {
		t.Fatal("expected error for 422 response")
	}
	if !strings.Contains(err.Error(), "insufficient_float") {
		t.Errorf("error should carry the provider detail, got %v", err)
	}
}

func TestClient_ConfirmEscrow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrows/esc-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(EscrowResponse{Reference: "esc-42", Amount: 500, Status: "held"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_key")
	if err := client.ConfirmEscrow(context.Background(), "esc-42", 500); err != nil {
		t.Fatalf("ConfirmEscrow failed: %v", err)
	}
}

func TestClient_ConfirmEscrow_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    EscrowResponse
		amount  int64
		wantSub string
	}{
		{
			name:    "not found",
			status:  http.StatusNotFound,
			amount:  500,
			wantSub: "not found",
		},
		{
			name:    "released escrow",
			status:  http.StatusOK,
			body:    EscrowResponse{Reference: "esc-42", Amount: 500, Status: "released"},
			amount:  500,
			wantSub: "released",
		},
		{
			name:    "amount mismatch",
			status:  http.StatusOK,
			body:    EscrowResponse{Reference: "esc-42", Amount: 400, Status: "held"},
			amount:  500,
			wantSub: "holds 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.status == http.StatusOK {
					json.NewEncoder(w).Encode(tt.body)
				}
			}))
			defer server.Close()

			client := NewClient(server.URL, "sk_test_key")
			err := client.ConfirmEscrow(context.Background(), "esc-42", tt.amount)
			if err == nil {
				t.Fatal("expected confirmation to fail")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("expected error containing %q, got %v", tt.wantSub, err)
			}
		})
	}
}
