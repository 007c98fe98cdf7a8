package confirm

import (
	"errors"
	"testing"

	"github.com/ankwata/ankwata/internal/lottery/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Confirmation
		wantErr error
	}{
		{
			name:    "webhook success",
			payload: `{"data":{"tx_ref":"ankwata_r1","status":"successful"}}`,
			want:    Confirmation{Reference: "ankwata_r1", Outcome: domain.OutcomeSuccess},
		},
		{
			name:    "webhook failed",
			payload: `{"data":{"tx_ref":"ankwata_r1","status":"failed"}}`,
			want:    Confirmation{Reference: "ankwata_r1", Outcome: domain.OutcomeFailure},
		},
		{
			name:    "webhook unknown status maps to failure",
			payload: `{"data":{"tx_ref":"ankwata_r1","status":"reversed"}}`,
			want:    Confirmation{Reference: "ankwata_r1", Outcome: domain.OutcomeFailure},
		},
		{
			name:    "manual flat with status",
			payload: `{"tx_ref":"ankwata_r2","status":"successful"}`,
			want:    Confirmation{Reference: "ankwata_r2", Outcome: domain.OutcomeSuccess},
		},
		{
			name:    "manual flat defaults to success",
			payload: `{"tx_ref":"ankwata_r2"}`,
			want:    Confirmation{Reference: "ankwata_r2", Outcome: domain.OutcomeSuccess},
		},
		{
			name:    "nested shape takes precedence over flat",
			payload: `{"tx_ref":"ankwata_flat","data":{"tx_ref":"ankwata_nested","status":"failed"}}`,
			want:    Confirmation{Reference: "ankwata_nested", Outcome: domain.OutcomeFailure},
		},
		{
			name:    "missing reference",
			payload: `{"data":{"status":"successful"}}`,
			wantErr: ErrMalformedConfirmation,
		},
		{
			name:    "not json",
			payload: `tx_ref=ankwata_r1`,
			wantErr: ErrMalformedConfirmation,
		},
		{
			name:    "empty object",
			payload: `{}`,
			wantErr: ErrMalformedConfirmation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize([]byte(tc.payload))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("confirmation = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestFromGatewayStatus(t *testing.T) {
	got, err := FromGatewayStatus("ankwata_r1", "successful")
	if err != nil {
		t.Fatalf("from gateway status: %v", err)
	}
	if got.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %v, want %v", got.Outcome, domain.OutcomeSuccess)
	}

	got, err = FromGatewayStatus("ankwata_r1", "cancelled")
	if err != nil {
		t.Fatalf("from gateway status: %v", err)
	}
	if got.Outcome != domain.OutcomeFailure {
		t.Fatalf("outcome = %v, want %v", got.Outcome, domain.OutcomeFailure)
	}

	if _, err := FromGatewayStatus("  ", "successful"); !errors.Is(err, ErrMalformedConfirmation) {
		t.Fatalf("err = %v, want %v", err, ErrMalformedConfirmation)
	}
}
