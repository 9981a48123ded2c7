package ircd

import (
	"reflect"
	"testing"

	ircwire "github.com/horgh/irc"
)

func TestSplitTargets(t *testing.T) {
	tests := []struct {
		arg  string
		want []string
	}{
		{"#a,#b,#c", []string{"#a", "#b", "#c"}},
		{"alice", []string{"alice"}},
		{"", []string{""}},
		{"a,,b", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		got := splitTargets(tt.arg)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitTargets(%q) = %#v, want %#v", tt.arg, got, tt.want)
		}
	}
}

func TestMaxTargetsEnforced(t *testing.T) {
	targets := splitTargets("a,b,c,d,e,f")
	if len(targets) <= maxTargets {
		t.Fatalf("test fixture should exceed maxTargets=%d, got %d", maxTargets, len(targets))
	}

	srv := NewServer(DefaultConfig("irc.local"))
	c := newTestConnection(t, srv)
	srv.dispatchMessage(c, ircwire.Message{
		Command: "PRIVMSG",
		Params:  []string{"a,b,c,d,e,f", "hello"},
	}, "PRIVMSG", true)

	select {
	case m := <-c.writeChan:
		if m.Command != errTooManyTargets {
			t.Errorf("reply command = %q, want %q", m.Command, errTooManyTargets)
		}
	default:
		t.Fatalf("expected ERR_TOOMANYTARGETS for %d targets, got no reply", len(targets))
	}
}
