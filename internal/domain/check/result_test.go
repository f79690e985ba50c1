package check

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	sharedErrors "github.com/khanhnv2901/seca-audit/internal/shared/errors"
)

func TestKindsCatalogOrder(t *testing.T) {
	expected := []Kind{KindDNS, KindProxy, KindFirewall, KindIPExposure, KindVPN, KindIPv6, KindHTTPS}
	got := Kinds()
	if len(got) != len(expected) {
		t.Fatalf("expected %d kinds, got %d", len(expected), len(got))
	}
	for i, k := range expected {
		if got[i] != k {
			t.Fatalf("position %d: expected %s, got %s", i, k, got[i])
		}
		if k.Index() != i {
			t.Fatalf("expected index %d for %s, got %d", i, k, k.Index())
		}
		meta, ok := k.Metadata()
		if !ok || meta.Title == "" || meta.Summary == "" {
			t.Fatalf("kind %s is missing metadata: %+v", k, meta)
		}
	}

	got[0] = "mutated"
	if Kinds()[0] != KindDNS {
		t.Fatal("Kinds must return a copy of the catalog")
	}
}

func TestParseKind(t *testing.T) {
	testCases := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{input: "dns", expected: KindDNS},
		{input: " DNS ", expected: KindDNS},
		{input: "ip-exposure", expected: KindIPExposure},
		{input: "geoip", expected: KindIPExposure},
		{input: "https_reachability", expected: KindHTTPS},
		{input: "tls", expected: KindHTTPS},
		{input: "bluetooth", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseKind(tc.input)
			if tc.wantErr {
				if !errors.Is(err, sharedErrors.ErrUnknownKind) {
					t.Fatalf("expected ErrUnknownKind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestUnknownKindTitleFallsBack(t *testing.T) {
	k := Kind("wifi")
	if k.Valid() {
		t.Fatal("wifi should not be a valid kind")
	}
	if k.Title() != "wifi" {
		t.Fatalf("expected raw name as title, got %q", k.Title())
	}
	if k.Index() != -1 {
		t.Fatalf("expected -1 index, got %d", k.Index())
	}
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pass", "WARNING", "fail", "info", "error"} {
		if _, err := ParseStatus(raw); err != nil {
			t.Fatalf("ParseStatus(%q): %v", raw, err)
		}
	}
	if _, err := ParseStatus("critical"); !errors.Is(err, sharedErrors.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if !CheckStatusFail.Problem() || !CheckStatusError.Problem() || CheckStatusWarning.Problem() {
		t.Fatal("only fail and error are problems")
	}
}

func TestNewResultValidation(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		kind    Kind
		outcome Outcome
		at      time.Time
		wantErr error
	}{
		{
			name:    "unknown kind",
			kind:    "wifi",
			outcome: NewOutcome(CheckStatusPass, "ok"),
			at:      now,
			wantErr: sharedErrors.ErrUnknownKind,
		},
		{
			name:    "invalid status",
			kind:    KindDNS,
			outcome: NewOutcome("critical", "ok"),
			at:      now,
			wantErr: sharedErrors.ErrInvalidStatus,
		},
		{
			name:    "blank headline",
			kind:    KindDNS,
			outcome: NewOutcome(CheckStatusPass, "   "),
			at:      now,
			wantErr: sharedErrors.ErrEmptyHeadline,
		},
		{
			name:    "missing finish time",
			kind:    KindDNS,
			outcome: NewOutcome(CheckStatusPass, "ok"),
			wantErr: sharedErrors.ErrInvalidResult,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewResult(tc.kind, tc.outcome, tc.at, time.Second)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestResultIsImmutable(t *testing.T) {
	outcome := NewOutcome(CheckStatusInfo, "Public IP 203.0.113.7")
	outcome.AddDetail("IP", "203.0.113.7")
	outcome.AddDetail("Geo", "Berlin, DE")
	outcome.AddDetail("ISP", "")
	outcome.AddNote("lookup via %s", "ident.me")

	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := NewResult(KindIPExposure, outcome, finished, -time.Second)
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}

	if res.Duration() != 0 {
		t.Fatalf("negative duration should clamp to zero, got %s", res.Duration())
	}
	if len(res.Details()) != 2 {
		t.Fatalf("blank detail should be skipped, got %+v", res.Details())
	}
	if res.Details()[1].Label != "Geo" {
		t.Fatalf("details must keep insertion order, got %+v", res.Details())
	}

	outcome.Details[0].Value = "198.51.100.1"
	details := res.Details()
	details[0].Value = "changed"
	notes := res.Notes()
	notes[0] = "changed"

	if v, _ := res.Detail("IP"); v != "203.0.113.7" {
		t.Fatalf("result detail mutated through a copy: %s", v)
	}
	if res.Notes()[0] != "lookup via ident.me" {
		t.Fatalf("result note mutated through a copy: %s", res.Notes()[0])
	}
}

func TestResultMarshalJSON(t *testing.T) {
	finished := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	res, err := NewResult(KindFirewall, NewOutcome(CheckStatusFail, "Firewall is disabled"), finished, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("NewResult: %v", err)
	}

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, want := range []string{
		`"kind":"firewall"`,
		`"title":"Firewall Posture"`,
		`"status":"fail"`,
		`"details":[]`,
		`"notes":[]`,
		`"duration_seconds":1.5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestErrorOutcome(t *testing.T) {
	o := ErrorOutcome("DNS check failed", errors.New("permission denied"))
	if o.Status != CheckStatusError {
		t.Fatalf("expected error status, got %s", o.Status)
	}
	if len(o.Notes) != 1 || o.Notes[0] != "permission denied" {
		t.Fatalf("expected cause as note, got %+v", o.Notes)
	}
}
