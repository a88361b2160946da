package telegram

import "testing"

func TestPeerKind(t *testing.T) {
	cases := map[string]string{
		"group":      "group",
		"supergroup": "group",
		"private":    "direct",
		"channel":    "direct",
		"":           "direct",
	}
	for in, want := range cases {
		if got := peerKind(in); got != want {
			t.Errorf("peerKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseChatID(t *testing.T) {
	id, err := parseChatID("123456789")
	if err != nil {
		t.Fatalf("parseChatID: %v", err)
	}
	if id != 123456789 {
		t.Fatalf("got %d", id)
	}

	negID, err := parseChatID("-100123456")
	if err != nil {
		t.Fatalf("parseChatID negative: %v", err)
	}
	if negID != -100123456 {
		t.Fatalf("got %d", negID)
	}
}

func TestParseChatIDRejectsNonNumeric(t *testing.T) {
	if _, err := parseChatID("not-a-number"); err == nil {
		t.Fatalf("expected an error for a non-numeric chat id")
	}
}
