package uri_test

import (
	"testing"

	"github.com/cmintegration/cmclient/pkg/uri"
)

const root = "https://cm.example.com/sap/opu/odata/SAP/AI_CRM_GW_CM_CI_SRV"

func TestBuilder_paths(t *testing.T) {
	b := uri.New(root+"/", uri.LiteralCompat)

	cases := []struct {
		name string
		got  string
		want string
	}{
		{"entity", b.Entity("Changes", b.Key("8000038673")), root + "/Changes('8000038673')"},
		{"navigation", b.Navigation("Changes", b.Key("8000038673"), "Transports"), root + "/Changes('8000038673')/Transports"},
		{"metadata", b.Metadata(), root + "/$metadata"},
		{
			"composite key",
			b.Entity("Files", b.CompositeKey(uri.P("TransportID", "L21K900026"), uri.P("FileID", "a.txt"), uri.P("ApplicationID", "HCP"))),
			root + "/Files(TransportID='L21K900026',FileID='a.txt',ApplicationID='HCP')",
		},
		{
			"function call",
			b.FunctionCall("releaseTransport", b.Query(uri.P("ChangeID", "8000038673"), uri.P("TransportID", "L21K900026"))),
			root + "/releaseTransport?ChangeID='8000038673'&TransportID='L21K900026'",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %q, want %q", tc.got, tc.want)
			}
		})
	}
}

func TestFunctionCall_escapesFragment(t *testing.T) {
	b := uri.New(root, uri.LiteralCompat)
	got := b.FunctionCall("createTransportAdvanced", b.Query(
		uri.P("ChangeID", "8000038673"),
		uri.P("Description", "my transport"),
		uri.P("Owner", "ÄLICE"),
	))
	want := root + "/createTransportAdvanced?ChangeID='8000038673'&Description='my%20transport'&Owner='%C3%84LICE'"
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestQuery_compatKeepsQuotes(t *testing.T) {
	b := uri.New(root, uri.LiteralCompat)
	got := b.Query(uri.P("Description", "it's a&b"))
	if want := "?Description='it's a&b'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuery_escapedMode(t *testing.T) {
	b := uri.New(root, uri.LiteralEscaped)

	got := b.Query(uri.P("Description", "it's a&b"), uri.P("Owner", "x#1+2"))
	if want := "?Description='it''s%20a%26b'&Owner='x%231%2B2'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Values are encoded once, when rendered.
	full := b.FunctionCall("createTransportAdvanced", b.Query(uri.P("Description", "50%20off")))
	if want := root + "/createTransportAdvanced?Description='50%2520off'"; full != want {
		t.Errorf("got %q\nwant %q", full, want)
	}
}

func TestKey_escapedMode(t *testing.T) {
	b := uri.New(root, uri.LiteralEscaped)
	if got, want := b.Key("O'Brien"), "'O''Brien'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := b.CompositeKey(uri.P("FileID", "a'b.txt")), "FileID='a''b.txt'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	cases := map[string]string{
		"A#1":     "'A%231'",
		"A?x=1":   "'A%3Fx=1'",
		"a/b":     "'a%2Fb'",
		"50%":     "'50%25'",
		"my file": "'my%20file'",
	}
	for in, want := range cases {
		key := b.Key(in)
		if key != want {
			t.Errorf("Key(%q) = %q, want %q", in, key, want)
		}
		if got := b.Escape(key); got != key {
			t.Errorf("Escape(%q) = %q, want it unchanged", key, got)
		}
	}
}

func TestFunctionCall_compatEncodesPercentOnce(t *testing.T) {
	b := uri.New(root, uri.LiteralCompat)
	got := b.FunctionCall("createTransportAdvanced", b.Query(uri.P("Description", "50%20off")))
	if want := root + "/createTransportAdvanced?Description='50%2520off'"; got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestQuery_empty(t *testing.T) {
	if got := uri.New(root, uri.LiteralCompat).Query(); got != "" {
		t.Errorf("expected empty query, got %q", got)
	}
}

func TestEscapeFragment(t *testing.T) {
	cases := map[string]string{
		"?a='b'&c=d":  "?a='b'&c=d",
		"a b":         "a%20b",
		"50%":         "50%25",
		"%2B":         "%252B",
		"x\"y<z>":     "x%22y%3Cz%3E",
		"a#b":         "a%23b",
		"(k=v);@:/~.": "(k=v);@:/~.",
	}
	for in, want := range cases {
		if got := uri.EscapeFragment(in); got != want {
			t.Errorf("EscapeFragment(%q) = %q, want %q", in, got, want)
		}
	}
}
