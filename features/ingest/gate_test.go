package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestDecide_Table(t *testing.T) {
	tests := []struct {
		name   string
		flags  Flags
		target *string
		want   Decision
	}{
		{"missing target", Flags{AllowNetwork: true}, nil, DecisionRejectInvalid},
		{"empty target", Flags{AllowNetwork: true}, strptr(""), DecisionRejectInvalid},
		{"dry run any target", Flags{DryRun: true, AllowNetwork: true}, strptr("http://example.com/x"), DecisionShortCircuitDryRun},
		{"dry run wins over mock", Flags{DryRun: true}, strptr("mock:hello"), DecisionShortCircuitDryRun},
		{"dry run wins over network off", Flags{DryRun: true, AllowNetwork: false}, strptr("http://example.com/x"), DecisionShortCircuitDryRun},
		{"network disabled real target", Flags{AllowNetwork: false}, strptr("http://example.com/x"), DecisionRejectNetworkOff},
		{"mock bypasses network gate", Flags{AllowNetwork: false}, strptr("mock:hello"), DecisionProceed},
		{"network allowed real target", Flags{AllowNetwork: true}, strptr("http://example.com/x"), DecisionProceed},
		{"local file path allowed", Flags{AllowNetwork: true}, strptr("/uploads/a.mp3"), DecisionProceed},
		{"local file path allowed with network off", Flags{AllowNetwork: false}, strptr("/uploads/a.mp3"), DecisionProceed},
		{"invalid wins over dry run", Flags{DryRun: true}, nil, DecisionRejectInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.flags, tt.target))
		})
	}
}

func TestDecideOutbound_Table(t *testing.T) {
	tests := []struct {
		name      string
		flags     Flags
		recipient string
		want      Decision
	}{
		{"no recipient configured", Flags{AllowNetwork: true}, "", DecisionRejectNoTarget},
		{"dry run", Flags{DryRun: true, AllowNetwork: true}, "ops@example.com", DecisionShortCircuitDryRun},
		{"network disabled", Flags{AllowNetwork: false}, "ops@example.com", DecisionRejectNetworkOff},
		{"mock recipient bypasses network gate", Flags{AllowNetwork: false}, "mock:inbox", DecisionProceed},
		{"normal delivery", Flags{AllowNetwork: true}, "ops@example.com", DecisionProceed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideOutbound(tt.flags, tt.recipient))
		})
	}
}

func TestDecide_InboundDoesNotImplyOutbound(t *testing.T) {
	flags := Flags{AllowNetwork: false}

	// Inbound mock target proceeds, but the outbound leg to a real recipient
	// is still rejected under the same flags.
	assert.Equal(t, DecisionProceed, Decide(flags, strptr("mock:hello")))
	assert.Equal(t, DecisionRejectNetworkOff, DecideOutbound(flags, "ops@example.com"))
}
