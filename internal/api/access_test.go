package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAccessClient_Redeem(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["usuario"] != "Steve" {
			t.Errorf("Got usuario %q, want Steve", body["usuario"])
		}
		w.Header().Set("Content-Type", "application/json")
		switch body["codigo"] {
		case "VIP2024":
			w.Write([]byte(`{"status":"success","message":"ok"}`))
		case "OLD":
			w.Write([]byte(`{"status":"error","message":"Ya tienes acceso a esta instancia"}`))
		default:
			w.Write([]byte(`{"status":"error","message":"Codigo no valido"}`))
		}
	}))
	defer ts.Close()

	c := NewAccessClient(ts.URL, nil)
	tests := []struct {
		code string
		want RedeemOutcome
	}{
		{"VIP2024", RedeemGranted},
		{"OLD", RedeemAlreadyOwned},
		{"NOPE", RedeemRefused},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			res, err := c.Redeem(context.Background(), tt.code, "Steve")
			if err != nil {
				t.Fatalf("Redeem failed: %v", err)
			}
			if res.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v (%s)", res.Outcome, tt.want, res.Message)
			}
		})
	}
}

func TestAccessClient_RejectsMalformedCode(t *testing.T) {
	c := NewAccessClient("http://127.0.0.1:1", nil)
	for _, code := range []string{"", "has space", "drop;table", "código"} {
		if _, err := c.Redeem(context.Background(), code, "Steve"); !errors.Is(err, ErrInvalidCode) {
			t.Errorf("Redeem(%q) err = %v, want ErrInvalidCode", code, err)
		}
	}
}
